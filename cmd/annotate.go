package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Olivia98106/semi-code/internal/filter"
	"github.com/Olivia98106/semi-code/internal/model"
)

var annotateNoTEI bool

var annotateCmd = &cobra.Command{
	Use:   "annotate <doc_id>",
	Short: "Run structural parsing on a document and report span counts",
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

		fmt.Printf("pages: %d, spans: %d\n", res.PageCount, len(res.Spans))
		counts := filter.Counts(res.Spans)
		for _, t := range model.AllAnnotationTypes {
			if counts[t] > 0 {
				fmt.Printf("  %-18s %d\n", t, counts[t])
			}
		}

		if !annotateNoTEI {
			path := filepath.Join(cfg.PDF.TEIDir, s.Doc.DocID+".grobid.tei.xml")
			if err := os.MkdirAll(cfg.PDF.TEIDir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, res.TEI, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	annotateCmd.Flags().BoolVar(&annotateNoTEI, "no-tei", false, "skip writing the TEI XML file")
	rootCmd.AddCommand(annotateCmd)
}
