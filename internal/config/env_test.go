package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"EVENFLOW_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("EVENFLOW_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EVENFLOW_DATABASE_URL", "sqlite://:memory:")
	t.Setenv("EVENFLOW_TRANSPORT", "http")
	t.Setenv("EVENFLOW_HTTP_ADDR", "127.0.0.1:9999")

	cfg := &ProjectConfig{Project: "p", Version: 1, Locations: LocationsConfig{Paths: []string{"w"}}}
	applyProjectDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Database.DSN != "sqlite://:memory:" {
		t.Fatalf("expected dsn override, got %q", cfg.Database.DSN)
	}
	if cfg.Server.Transport != TransportHTTP || cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
}

func TestApplyEnvRejectsBadTransport(t *testing.T) {
	t.Setenv("EVENFLOW_TRANSPORT", "carrier-pigeon")
	cfg := &ProjectConfig{Project: "p", Version: 1, Locations: LocationsConfig{Paths: []string{"w"}}}
	applyProjectDefaults(cfg)
	if err := ApplyEnv(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing file must be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("EVENFLOW_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Setenv("EVENFLOW_TEST_DOTENV", "")
	os.Unsetenv("EVENFLOW_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("EVENFLOW_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
