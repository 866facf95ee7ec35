// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"os"

	"github.com/semvault-dev/semvault/internal/cluster"
	"github.com/semvault-dev/semvault/internal/config"
	"github.com/semvault-dev/semvault/internal/embedding"
	"github.com/semvault-dev/semvault/internal/manager"
	"github.com/semvault-dev/semvault/internal/store"
	_ "github.com/semvault-dev/semvault/internal/store/sqlite" // register sqlite backend
	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/spf13/viper"
)

// loadConfig resolves the effective configuration from the global Viper
// (flags, env, and any discovered config file).
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// wireManager builds the full stack: snapshot backend, record store,
// embedding model, and clustering engine behind a manager. The caller
// owns the returned manager and must Close it.
func wireManager(cfg *config.Config) (*manager.Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, semerr.Errorf(semerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	snap, err := store.NewSnapshotter(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeCLISetupFailure, "creating snapshot backend")
	}

	model, err := buildModel(cfg)
	if err != nil {
		_ = snap.Close()
		return nil, semerr.Wrap(err, semerr.CodeCLISetupFailure, "creating embedding model")
	}

	st := store.New(snap, model.Dimensions())
	eng := cluster.NewEngine(cluster.Config{MaxIterations: cfg.Clustering.MaxIterations})

	return manager.New(model, st, eng), nil
}

// buildModel selects the embedding provider from config.
func buildModel(cfg *config.Config) (embedding.Model, error) {
	ec := cfg.Embedding

	switch ec.Provider {
	case "", "local":
		dims := ec.Dimensions
		if dims == 0 {
			dims = embedding.DefaultLocalDimensions
		}
		return embedding.NewLocalModel(dims)
	case "openai":
		return embedding.NewOpenAIModel(embedding.OpenAIConfig{
			APIKey:  ec.APIKey,
			BaseURL: ec.Endpoint,
			Model:   ec.Model,
			Dims:    ec.Dimensions,
			Timeout: ec.Timeout,
		})
	case "google":
		return embedding.NewGoogleModel(embedding.GoogleConfig{
			APIKey:  ec.APIKey,
			Model:   ec.Model,
			Dims:    ec.Dimensions,
			Timeout: ec.Timeout,
		})
	default:
		return nil, semerr.Errorf(semerr.CodeEmbeddingProviderUnknown,
			"unknown embedding provider %q", ec.Provider)
	}
}
