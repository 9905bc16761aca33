package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "esg-cli",
	Short: "ESG supplier enrichment pipeline",
	Long:  "Enriches batches of company names with sustainability disclosure data via an LLM research agent, scores the findings, and stores supplier records per organization.",
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
