package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envOnly    bool
)

var rootCmd = &cobra.Command{
	Use:           "best-bets",
	Short:         "Discovers new Solana tokens, scores them and keeps a live top ranking",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultPath := os.Getenv("BB_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	defaultEnvOnly := os.Getenv("BB_ENV_ONLY") == "1" || os.Getenv("BB_ENV_ONLY") == "true"

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&envOnly, "env-only", defaultEnvOnly, "read configuration from BB_* environment variables only")
	rootCmd.AddCommand(serveCmd, scanCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
