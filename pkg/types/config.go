// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Config groups the settings of every component. It is populated by viper
// from llmsurver.yaml, LLMSURVER_* environment variables and flags.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Run      RunConfig      `json:"run" yaml:"run" mapstructure:"run"`
	Classify ClassifyConfig `json:"classify" yaml:"classify" mapstructure:"classify"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Secrets  SecretsConfig  `json:"secrets" yaml:"secrets" mapstructure:"secrets"`
}

// StoreConfig holds settings for the SQLite database.
type StoreConfig struct {
	// Path is the database file (default "survey.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// RunConfig holds settings for the run orchestrator.
type RunConfig struct {
	// SampleSize is the number of leading papers classified by a sample run
	// (default 5).
	SampleSize int `json:"sample_size" yaml:"sample_size" mapstructure:"sample_size"`
}

// ClassifyConfig holds settings for the chat classification backend.
type ClassifyConfig struct {
	// Timeout bounds each chat request. Zero disables the timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxTokens is sent as max_tokens when positive.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Instructions is appended to every operator prompt before the paper
	// title and abstract.
	Instructions string `json:"instructions" yaml:"instructions" mapstructure:"instructions"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// SecretsConfig locates API keys stored as plain files.
type SecretsConfig struct {
	// Dir is the secrets directory (default ".secrets/").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}
