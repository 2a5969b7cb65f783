package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Olivia98106/semi-code/internal/export"
	"github.com/Olivia98106/semi-code/internal/model"
	"github.com/Olivia98106/semi-code/internal/store"
)

var (
	exportOut   string
	exportXLSX  bool
	exportTypes []string
	exportText  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export labels, audit logs, and document content",
}

var exportLabelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Export the doc × variable label table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Store.ListLabels(ctx, store.LabelFilter{})
		if err != nil {
			return err
		}

		if exportXLSX {
			out := exportOut
			if out == "" {
				out = "labels.xlsx"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := export.LabelTableXLSX(records, f); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		}

		return writeOutput(export.LabelTable(records))
	},
}

var exportAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Export the full label audit log as TSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Store.ListLabels(ctx, store.LabelFilter{})
		if err != nil {
			return err
		}
		return writeOutput(export.AuditLog(records))
	},
}

var exportTEICmd = &cobra.Command{
	Use:   "tei <doc_id>",
	Short: "Export a document's structural markup as TEI XML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.openSession(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := s.Annotations(ctx)
		if err != nil {
			return err
		}
		return writeOutput(res.TEI)
	},
}

var exportContentCmd = &cobra.Command{
	Use:   "content <doc_id>",
	Short: "Export a document's filtered structural content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.openSession(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := s.Annotations(ctx)
		if err != nil {
			return err
		}

		cfg := filterConfigFromTypes(exportTypes)

		if exportText {
			return writeOutput([]byte(export.FilteredText(s.Doc.DocID, res, cfg)))
		}
		out, err := export.FilteredJSON(s.Doc.DocID, res, cfg)
		if err != nil {
			return err
		}
		return writeOutput(out)
	},
}

// filterConfigFromTypes builds a FilterConfig from --types values; an empty
// list means the default toggles.
func filterConfigFromTypes(types []string) model.FilterConfig {
	if len(types) == 0 {
		return model.DefaultFilterConfig()
	}
	cfg := model.FilterConfig{}
	for _, t := range types {
		cfg[model.AnnotationType(strings.TrimSpace(t))] = true
	}
	return cfg
}

func writeOutput(data []byte) error {
	if exportOut == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", exportOut)
	return nil
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOut, "out", "", "write to a file instead of stdout")
	exportLabelsCmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "write a spreadsheet instead of TSV")
	exportContentCmd.Flags().StringSliceVar(&exportTypes, "types", nil, "annotation types to include (default: sentence,paragraph,figure)")
	exportContentCmd.Flags().BoolVar(&exportText, "text", false, "plain text output instead of JSON")

	exportCmd.AddCommand(exportLabelsCmd, exportAuditCmd, exportTEICmd, exportContentCmd)
	rootCmd.AddCommand(exportCmd)
}
