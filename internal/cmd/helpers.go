package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowboardhq/flowboard/internal/config"
	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/logging"
	"github.com/flowboardhq/flowboard/internal/store"
	"github.com/flowboardhq/flowboard/internal/store/sqlite"
)

// loadConfig unmarshals and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the SQLite database named by the config, creating the
// data directory on first use.
func openStore(cfg *config.Config) (*sqlite.DB, error) {
	path := cfg.ResolveStorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sqlite.Open(path, cfg.Store.BusyTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	return db, nil
}

// newLogger builds a logger from the logging config. A disabled config
// yields a no-op logger so callers never branch on nil.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	})
}

// loadGraph assembles the dependency graph from stored tasks, optionally
// scoped to one board.
func loadGraph(ctx context.Context, st store.Store, boardID string) (*graph.Graph, error) {
	tasks, err := st.ListTasks(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return graph.Build(tasks)
}
