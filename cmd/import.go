package main

import (
	"encoding/csv"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Olivia98106/semi-code/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Seed the document and chain catalogues",
}

var importDocsCmd = &cobra.Command{
	Use:   "docs <catalogue.csv>",
	Short: "Import the PDF catalogue from CSV (doc_id,filename)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		docs, err := readDocsCSV(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.ImportDocuments(ctx, docs)
		if err != nil {
			return err
		}

		zap.L().Info("document import complete",
			zap.Int("imported", n),
			zap.String("csv", args[0]))
		return nil
	},
}

var importChainsCmd = &cobra.Command{
	Use:   "chains <chains.yaml>",
	Short: "Import the variable → prompt catalogue from YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		chains, err := readChainsYAML(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		for _, chain := range chains {
			if err := env.Store.UpsertChain(ctx, chain); err != nil {
				return err
			}
		}

		zap.L().Info("chain import complete",
			zap.Int("imported", len(chains)),
			zap.String("yaml", args[0]))
		return nil
	},
}

func readDocsCSV(path string) ([]model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open catalogue csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	var docs []model.Document
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read catalogue csv")
		}
		// tolerate a header row
		if line == 1 && rec[0] == "doc_id" {
			continue
		}
		if rec[0] == "" || rec[1] == "" {
			return nil, eris.Errorf("catalogue csv line %d: empty doc_id or filename", line)
		}
		docs = append(docs, model.Document{DocID: rec[0], Filename: rec[1]})
	}
	return docs, nil
}

func readChainsYAML(path string) ([]model.Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read chains yaml")
	}

	var byVariable map[string]string
	if err := yaml.Unmarshal(data, &byVariable); err != nil {
		return nil, eris.Wrap(err, "parse chains yaml")
	}

	chains := make([]model.Chain, 0, len(byVariable))
	for variable, promptText := range byVariable {
		chains = append(chains, model.Chain{Variable: variable, Prompt: promptText})
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].Variable < chains[j].Variable })
	return chains, nil
}

func init() {
	importCmd.AddCommand(importDocsCmd, importChainsCmd)
	rootCmd.AddCommand(importCmd)
}
