// Package cli provides the moviesync command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/config/file"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

var (
	version = "dev"

	configPath string
	verbose    bool

	// cfg is loaded once before any command that needs it runs.
	cfg *file.Config

	// loadConfig is swapped in tests.
	loadConfig = file.Load
)

var rootCmd = &cobra.Command{
	Use:   "moviesync",
	Short: "Keep the movie search indices in sync with the catalogue database",
	Long: `moviesync polls the relational movie catalogue for changed films,
people and genres, rebuilds the affected film documents and upserts them
into Elasticsearch. Progress is checkpointed per entity kind so an
interrupted run resumes where it stopped.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (TOML or YAML; default ~/.moviesync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	loaded, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Setup(loaded.Log.Level, loaded.Log.Format, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	if verbose {
		logger.SetVerbose(true)
	}
	cfg = loaded
	return nil
}
