package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openaddr-tools/conform-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "conform-cli",
	Short: "Conform heterogeneous address datasets to the canonical schema",
	Long:  "Validates source definitions, runs embedded acceptance tests, and converts decoded address datasets into the canonical fixed-column output schema.",
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
