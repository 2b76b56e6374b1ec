// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/viper"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/internal/config"
	"github.com/dbvis-ukon/LLMSurver/internal/logging"
	"github.com/dbvis-ukon/LLMSurver/internal/metrics"
	"github.com/dbvis-ukon/LLMSurver/internal/review"
	"github.com/dbvis-ukon/LLMSurver/internal/secrets"
	"github.com/dbvis-ukon/LLMSurver/internal/store"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// app bundles what every command needs once configuration is loaded.
type app struct {
	cfg     types.Config
	logger  *slog.Logger
	keys    secrets.Keys
	store   *store.Store
	metrics *metrics.Metrics
}

// openApp loads the configuration, the secrets and the database.
func openApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	keys, err := secrets.Load(cfg.Secrets.Dir)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		names := make([]string, 0, len(keys))
		for k := range keys {
			names = append(names, k)
		}
		sort.Strings(names)
		logger.Debug("loaded secrets", "keys", names)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Store.Path, err)
	}
	return &app{cfg: cfg, logger: logger, keys: keys, store: st, metrics: metrics.New()}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// backend is the chat completions classifier over the registered models.
func (a *app) backend() *classify.ChatBackend {
	return &classify.ChatBackend{
		Models:       a.store,
		Keys:         a.keys,
		Instructions: a.cfg.Classify.Instructions,
		MaxTokens:    a.cfg.Classify.MaxTokens,
		Timeout:      a.cfg.Classify.Timeout,
	}
}

// session starts a review session. Each CLI invocation is its own session.
func (a *app) session() *review.Service {
	return review.New(a.store, a.backend(),
		review.WithLogger(a.logger),
		review.WithMetrics(a.metrics),
		review.WithSampleSize(a.cfg.Run.SampleSize),
	)
}
