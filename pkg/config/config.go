// Package config loads the YAML settings shared by the aamlp commands.
// Command-line flags override whatever the file provides.
package config

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
)

// Fold strategies accepted by the folds command.
const (
	StrategyKFold      = "kfold"
	StrategyStratified = "stratified"
	StrategyRegression = "regression"
)

// Config mirrors the textbook's config.py plus the fold settings.
type Config struct {
	TrainingFile string   `yaml:"training_file"`
	ModelOutput  string   `yaml:"model_output"`
	Target       string   `yaml:"target"`
	FoldColumn   string   `yaml:"fold_column"`
	DropColumns  []string `yaml:"drop_columns,omitempty"`
	Strategy     string   `yaml:"strategy"`
	NSplits      int      `yaml:"n_splits"`
	Seed         uint64   `yaml:"seed"`
	LogLevel     string   `yaml:"log_level"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		TrainingFile: "input/train_folds.csv",
		ModelOutput:  "models",
		Target:       "target",
		FoldColumn:   "kfold",
		Strategy:     StrategyKFold,
		NSplits:      5,
		Seed:         42,
		LogLevel:     "info",
	}
}

// Load reads path on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.GetLogger().Debug("config loaded", log.PathKey, path)
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if c.NSplits < 2 {
		return errors.NewValidationError("n_splits", "must be at least 2", c.NSplits)
	}
	if c.Target == "" {
		return errors.NewValidationError("target", "must not be empty", c.Target)
	}
	if c.FoldColumn == "" {
		return errors.NewValidationError("fold_column", "must not be empty", c.FoldColumn)
	}
	switch c.Strategy {
	case StrategyKFold, StrategyStratified, StrategyRegression:
	default:
		return errors.NewValidationError("strategy", "must be kfold, stratified or regression", c.Strategy)
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return errors.NewValidationError("log_level", "must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}
