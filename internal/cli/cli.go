// Package cli wires the aamlp library packages to CSV files on disk, one
// cobra subcommand per recipe.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/approachingml/aamlp/pkg/config"
	"github.com/approachingml/aamlp/pkg/log"
)

// CLI holds the root command and the settings resolved before any
// subcommand runs.
type CLI struct {
	version    string
	configPath string
	logLevel   string
	verbose    bool

	cfg     *config.Config
	rootCmd *cobra.Command
}

// New creates a CLI with every subcommand registered.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:           "aamlp",
		Short:         "Applied machine learning recipes over CSV files",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initApp()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file (flags override its values)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Debug logging with console output")

	c.rootCmd.AddCommand(
		c.newFoldsCommand(),
		c.newTrainCommand(),
		c.newEncodeCommand(),
		c.newMetricsCommand(),
		c.newSearchCommand(),
		c.newPlotCommand(),
		c.newSelectCommand(),
		c.newFeaturesCommand(),
	)
}

// Run executes the CLI with os.Args.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

// initApp loads the config file and configures the global logger.
func (c *CLI) initApp() error {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}
	if err := log.SetupLogger(cfg.LogLevel, c.verbose); err != nil {
		return err
	}
	c.cfg = cfg
	log.GetLogger().Debug("config resolved",
		log.ComponentKey, "cli",
		log.PathKey, cfg.TrainingFile,
		log.StrategyKey, cfg.Strategy,
		log.NSplitsKey, cfg.NSplits,
	)
	return nil
}

// orDefault returns v unless it is empty.
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
