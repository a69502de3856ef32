// Package main implements careerctl, the operator CLI for the careerprep
// database and model backends.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/careerprep/internal/config"
)

type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "careerctl",
		Short:         "Operate the careerprep database and LLM backends",
		Long:          "careerctl applies migrations, takes and restores SQLite backups, checks the configured model provider and renders resumes to LaTeX offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config YAML file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(
		newMigrateCmd(opts),
		newMigrationsCmd(opts),
		newBackupCmd(opts),
		newRestoreCmd(opts),
		newLLMCmd(opts),
		newRenderCmd(),
	)
	return root
}

// load reads .env and the config file, applies the --db override and fills
// defaults. The JWT secret is not checked; no subcommand serves HTTP.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	cfg.SetDefaults()
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
