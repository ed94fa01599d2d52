package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aamlp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.NSplits)
	assert.Equal(t, "target", cfg.Target)
	assert.Equal(t, StrategyKFold, cfg.Strategy)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
training_file: input/mnist_train_folds.csv
target: label
n_splits: 10
strategy: stratified
drop_columns: [id, kfold]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "input/mnist_train_folds.csv", cfg.TrainingFile)
	assert.Equal(t, "label", cfg.Target)
	assert.Equal(t, 10, cfg.NSplits)
	assert.Equal(t, StrategyStratified, cfg.Strategy)
	assert.Equal(t, []string{"id", "kfold"}, cfg.DropColumns)
	// untouched keys keep their defaults
	assert.Equal(t, "models", cfg.ModelOutput)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "one split", body: "n_splits: 1\n"},
		{name: "empty target", body: "target: \"\"\n"},
		{name: "unknown strategy", body: "strategy: group\n"},
		{name: "bad level", body: "log_level: loud\n"},
		{name: "malformed yaml", body: "n_splits: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Target = "quality"
	cfg.DropColumns = []string{"id"}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
