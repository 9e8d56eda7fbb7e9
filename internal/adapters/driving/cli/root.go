// Package cli defines the corpusqa command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parchment-labs/corpusqa/internal/config"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

var (
	flagVerbose    bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "corpusqa",
	Short: "Question answering over a document corpus",
	Long: `corpusqa ingests plain-text documents into a vector store and answers
questions about them, streaming responses grounded in the retrieved sources.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to TOML config file")
}

// loadConfig reads .env if present, then the optional config file and
// environment overrides.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env")
	}
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
