package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvOverrides are read from the process environment after an optional
// .env file has been loaded.
type EnvOverrides struct {
	DatabaseURL  string `env:"EVENFLOW_DATABASE_URL"`
	FallbackURL  string `env:"DATABASE_URL"`
	Transport    string `env:"EVENFLOW_TRANSPORT"`
	HTTPAddr     string `env:"EVENFLOW_HTTP_ADDR"`
	LogLevel     string `env:"EVENFLOW_LOG_LEVEL"`
	AffinityPath string `env:"EVENFLOW_AFFINITY_CONFIG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *ProjectConfig) error {
	var o EnvOverrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	switch {
	case o.DatabaseURL != "":
		cfg.Database.DSN = o.DatabaseURL
	case o.FallbackURL != "" && cfg.Database.DSN == "":
		cfg.Database.DSN = o.FallbackURL
	}
	if o.Transport != "" {
		cfg.Server.Transport = o.Transport
	}
	if o.HTTPAddr != "" {
		cfg.Server.Addr = o.HTTPAddr
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.AffinityPath != "" {
		abs, err := filepath.Abs(o.AffinityPath)
		if err != nil {
			return fmt.Errorf("resolving affinity config path: %w", err)
		}
		cfg.Affinity = abs
	}
	if err := validateProjectConfig(cfg); err != nil {
		return fmt.Errorf("applying environment: %w", err)
	}
	return nil
}
