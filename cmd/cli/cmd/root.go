package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zecapture/graph/pkg/config"
	"github.com/zecapture/graph/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string
	logger     utils.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "graphctl",
	Short: "Drive and inspect the graph-capture replay engine",
	Long: `graphctl exercises the graph-capture engine end to end: capture a
command stream into a graph, instantiate it into replayable physical
command lists, submit it for replay through the worker-pool scheduler,
and inspect the audit trail those phases leave behind.

There is no real accelerator binding behind this CLI; it drives the
engine against an in-memory reference command-list implementation so
the capture/instantiate/execute/inspect pipeline can be exercised and
observed without real hardware.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	binName := BinName()
	rootCmd.Example = `  # Capture a small demo command stream and print its audit record
  ` + binName + ` capture --scenario linear

  # Capture a fork/join demo, then instantiate it under the split policy
  ` + binName + ` instantiate --scenario forkjoin --fork-policy split

  # Capture, instantiate, and replay through the scheduler
  ` + binName + ` execute --scenario forkjoin --priority 1

  # List recently recorded audit entries
  ` + binName + ` inspect --limit 10`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// loadConfig loads application configuration from configPath, falling
// back to defaults (and a local sqlite audit database) when no file is
// given — the common case for this CLI's demo scenarios.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		cfg.Database.Type = "sqlite"
		cfg.Database.Database = filepath.Join(cfg.Engine.DataDir, "audit.db")
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	return cfg, nil
}
