package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/model"
	"github.com/Olivia98106/semi-code/internal/prompt"
	"github.com/Olivia98106/semi-code/internal/store"
)

var (
	labelManual   string
	labelFullText bool
)

var labelCmd = &cobra.Command{
	Use:   "label <doc_id> <variable>",
	Short: "Run a chain variable's prompt against a document and record the label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		docID, variable := args[0], args[1]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// carry prior provenance forward on overwrite
		var prior model.LabelRecord
		if rec, err := env.Store.GetLabel(ctx, docID, variable); err == nil {
			prior = *rec
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if labelManual != "" {
			rec := model.LabelRecord{
				DocID:         docID,
				Variable:      variable,
				Label:         labelManual,
				AILabel:       prior.AILabel,
				ManualLabel:   labelManual,
				PromptVersion: prior.PromptVersion,
				Source:        model.SourceManual,
				UpdatedAt:     time.Now().UTC(),
			}
			if err := env.Store.UpsertLabel(ctx, rec); err != nil {
				return err
			}
			fmt.Printf("%s/%s = %s (manual)\n", docID, variable, labelManual)
			return nil
		}

		chain, err := env.Store.GetChain(ctx, variable)
		if err != nil {
			return err
		}

		s, err := env.openSession(ctx, docID)
		if err != nil {
			return err
		}

		parsed, err := env.askDocument(ctx, s, prompt.Build(chain.Prompt), labelFullText)
		if err != nil {
			return err
		}

		rec := model.LabelRecord{
			DocID:         docID,
			Variable:      variable,
			Label:         parsed.Result,
			AILabel:       parsed.Result,
			ManualLabel:   prior.ManualLabel,
			PromptVersion: prompt.Version,
			Source:        model.SourceAI,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := env.Store.UpsertLabel(ctx, rec); err != nil {
			return err
		}

		zap.L().Info("label recorded",
			zap.String("doc_id", docID),
			zap.String("variable", variable),
			zap.Bool("parse_failed", parsed.ParseFailed))

		fmt.Printf("%s/%s = %s", docID, variable, parsed.Result)
		if parsed.Confidence != "" {
			fmt.Printf(" (confidence: %s)", parsed.Confidence)
		}
		fmt.Println()
		if parsed.ParseFailed {
			fmt.Printf("\nraw answer (not valid json, label left blank):\n%s\n", parsed.Raw)
		}
		return nil
	},
}

func init() {
	labelCmd.Flags().StringVar(&labelManual, "manual", "", "record this value as a manual label instead of asking the model")
	labelCmd.Flags().BoolVar(&labelFullText, "full", false, "use the whole document as context")
	rootCmd.AddCommand(labelCmd)
}
