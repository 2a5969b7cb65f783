package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Olivia98106/semi-code/internal/prompt"
)

var askFullText bool

var askCmd = &cobra.Command{
	Use:   "ask <doc_id> <question>",
	Short: "Ask a one-off question about a document",
	Args:  cobra.ExactArgs(2),
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

		parsed, err := env.askDocument(ctx, s, prompt.Build(args[1]), askFullText)
		if err != nil {
			return err
		}

		fmt.Printf("result:     %s\n", parsed.Result)
		if parsed.Confidence != "" {
			fmt.Printf("confidence: %s\n", parsed.Confidence)
		}
		if parsed.Evidence != "" {
			fmt.Printf("evidence:   %s\n", parsed.Evidence)
		}
		if parsed.ParseFailed {
			fmt.Printf("\nraw answer (not valid json):\n%s\n", parsed.Raw)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askFullText, "full", false, "use the whole document as context instead of the ranged window")
	rootCmd.AddCommand(askCmd)
}
