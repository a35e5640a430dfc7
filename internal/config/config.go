package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Locations LocationsConfig `yaml:"locations"`
	Affinity  string          `yaml:"affinity"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	LogLevel  string          `yaml:"log_level"`

	dir string
}

type LocationsConfig struct {
	Paths   []string `yaml:"paths"`
	Exclude []string `yaml:"exclude"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyProjectDefaults(&cfg)
	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// Resolve makes p relative to the directory the config was loaded from.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *ProjectConfig) LocationPaths() []string {
	out := make([]string, 0, len(c.Locations.Paths))
	for _, p := range c.Locations.Paths {
		out = append(out, c.Resolve(p))
	}
	return out
}

func (c *ProjectConfig) ExcludePaths() []string {
	out := make([]string, 0, len(c.Locations.Exclude))
	for _, p := range c.Locations.Exclude {
		out = append(out, c.Resolve(p))
	}
	return out
}

func applyProjectDefaults(cfg *ProjectConfig) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if len(cfg.Locations.Paths) == 0 {
		return fmt.Errorf("at least one location path is required")
	}
	for i, p := range cfg.Locations.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("location path %d is empty", i)
		}
	}
	switch cfg.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q, expected stdio or http", cfg.Server.Transport)
	}
	dsn := cfg.Database.DSN
	if dsn != "" && !strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("unsupported database dsn scheme, expected sqlite:// or postgres://")
	}
	return nil
}
