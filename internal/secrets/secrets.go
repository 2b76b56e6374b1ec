// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Model keys are stored as <model>-api-key; openai-api-key is the fallback
// for every model without its own file.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FallbackKey is the file consulted when a model has no key file of its own.
const FallbackKey = "openai-api-key"

// Keys maps secret file names to their values.
type Keys map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (Keys, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Keys{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	keys := make(Keys)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			keys[name] = value
		}
	}

	return keys, nil
}

// KeyName returns the file name holding the API key of a model. Path
// separators and colons in model names ("org/model:tag") become dashes.
func KeyName(model string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	return strings.ToLower(r.Replace(strings.TrimSpace(model))) + "-api-key"
}

// Lookup returns the API key for a model, or the fallback key, or "".
func (k Keys) Lookup(model string) string {
	if v, ok := k[KeyName(model)]; ok {
		return v
	}
	return k[FallbackKey]
}
