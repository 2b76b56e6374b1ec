// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads types.Config through viper from llmsurver.yaml,
// LLMSURVER_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. LLMSURVER_STORE_PATH.
	EnvPrefix = "LLMSURVER"
	// FileName is the config file name without extension.
	FileName = "llmsurver"
)

// Defaults registers the default of every key so that environment
// variables are honored for all of them.
func Defaults(v *viper.Viper) {
	v.SetDefault("store.path", "survey.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("run.sample_size", 5)
	v.SetDefault("classify.timeout", "0s")
	v.SetDefault("classify.max_tokens", 0)
	v.SetDefault("classify.instructions", classify.DefaultInstructions)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("secrets.dir", ".secrets/")
}

// Setup points v at the config file and the environment. An explicit
// cfgFile must exist; otherwise ./llmsurver.yaml and
// ~/.config/llmsurver/llmsurver.yaml are tried. It returns the file used,
// or "" when none was found.
func Setup(v *viper.Viper, cfgFile string) (string, error) {
	Defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func Validate(cfg types.Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Store.Path) == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if cfg.Run.SampleSize < 1 {
		errs = append(errs, fmt.Errorf("run.sample_size must be at least 1, got %d", cfg.Run.SampleSize))
	}
	if cfg.Classify.Timeout < 0 {
		errs = append(errs, fmt.Errorf("classify.timeout must not be negative, got %s", cfg.Classify.Timeout))
	}
	if cfg.Classify.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("classify.max_tokens must not be negative, got %d", cfg.Classify.MaxTokens))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}
	return errors.Join(errs...)
}
