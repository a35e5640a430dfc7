package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"evenflow/internal/config"
	"evenflow/internal/engine"
	"evenflow/internal/ingest"
	"evenflow/internal/world"
)

type app struct {
	cfg    *config.ProjectConfig
	engine *engine.Engine
	logger *slog.Logger
}

func (a *app) Close(ctx context.Context) {
	a.engine.Stop()
	if a.engine.Store != nil {
		a.engine.Store.Close(ctx)
	}
}

func loadProject() (*config.ProjectConfig, error) {
	if err := config.LoadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadApp builds the world from the project's location files and
// restores any persisted state on top of it.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := loadProject()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	affCfg, err := config.LoadAffinityConfig(cfg.Resolve(cfg.Affinity))
	if err != nil {
		return nil, err
	}
	w, err := world.New(affCfg)
	if err != nil {
		return nil, err
	}

	result, err := ingest.Run(ctx, cfg, w)
	if err != nil {
		return nil, err
	}
	for _, item := range result.Errors {
		logger.Warn("location skipped", "error", item)
	}
	logger.Debug("locations loaded", "count", result.LocationsLoaded, "skipped", result.FilesSkipped)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	eng := engine.New(w, st, logger)
	restored, err := eng.Restore(ctx)
	if err != nil {
		if st != nil {
			st.Close(ctx)
		}
		return nil, fmt.Errorf("restoring state: %w", err)
	}
	if restored > 0 {
		logger.Debug("state restored", "locations", restored)
	}

	return &app{cfg: cfg, engine: eng, logger: logger}, nil
}

// newLogger writes to stderr; stdout belongs to the stdio transport.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
