// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	Defaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, types.Config{
		Store:    types.StoreConfig{Path: "survey.db"},
		Server:   types.ServerConfig{Addr: ":8080"},
		Run:      types.RunConfig{SampleSize: 5},
		Classify: types.ClassifyConfig{Instructions: classify.DefaultInstructions},
		Log:      types.LogConfig{Level: "info", Format: "text"},
		Secrets:  types.SecretsConfig{Dir: ".secrets/"},
	}, cfg)
}

func TestSetupReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  path: /tmp/review.db
run:
  sample_size: 3
classify:
  timeout: 90s
  max_tokens: 256
log:
  format: json
`), 0o644))
	t.Setenv("LLMSURVER_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("LLMSURVER_LOG_LEVEL", "debug")

	v := viper.New()
	used, err := Setup(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/review.db", cfg.Store.Path)
	assert.Equal(t, 3, cfg.Run.SampleSize)
	assert.Equal(t, 90*time.Second, cfg.Classify.Timeout)
	assert.Equal(t, 256, cfg.Classify.MaxTokens)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestSetupMissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	used, err := Setup(viper.New(), "")
	require.NoError(t, err)
	assert.Empty(t, used)

	_, err = Setup(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestValidate(t *testing.T) {
	valid := types.Config{
		Store: types.StoreConfig{Path: "x.db"},
		Run:   types.RunConfig{SampleSize: 1},
		Log:   types.LogConfig{Format: "TEXT"},
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*types.Config)
		msg    string
	}{
		{"empty store path", func(c *types.Config) { c.Store.Path = " " }, "store.path"},
		{"zero sample size", func(c *types.Config) { c.Run.SampleSize = 0 }, "run.sample_size"},
		{"negative timeout", func(c *types.Config) { c.Classify.Timeout = -time.Second }, "classify.timeout"},
		{"negative max tokens", func(c *types.Config) { c.Classify.MaxTokens = -1 }, "classify.max_tokens"},
		{"unknown log format", func(c *types.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
