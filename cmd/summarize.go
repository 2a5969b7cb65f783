package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Olivia98106/semi-code/internal/extract"
	"github.com/Olivia98106/semi-code/internal/prompt"
)

var summarizeFullText bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize <doc_id>",
	Short: "Generate a structured summary of a document",
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

		mode := env.Extractor.DefaultMode()
		if summarizeFullText {
			mode = extract.FullText()
		}
		kb, err := s.KB(ctx, mode)
		if err != nil {
			return err
		}

		// the summary is free text, not the json answer contract
		raw, err := env.Engine.Ask(ctx, kb, prompt.SummaryPrompt)
		if err != nil {
			return err
		}

		fmt.Println(raw)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeFullText, "full", false, "use the whole document as context")
	rootCmd.AddCommand(summarizeCmd)
}
