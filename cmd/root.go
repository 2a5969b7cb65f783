package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "semicode",
	Short: "Semi-automated labeling of academic papers",
	Long:  "Extracts text and structural annotations from academic PDFs, asks an LLM targeted questions about each paper, and persists reviewable labels.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
