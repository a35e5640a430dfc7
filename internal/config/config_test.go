package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-world" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Server.Transport != TransportHTTP {
			t.Fatalf("expected http transport, got %q", cfg.Server.Transport)
		}
		paths := cfg.LocationPaths()
		if len(paths) != 1 || paths[0] != filepath.Join("testdata", "locations") {
			t.Fatalf("expected resolved location path, got %v", paths)
		}
		if cfg.Resolve(cfg.Affinity) != filepath.Join("testdata", "affinity.yaml") {
			t.Fatalf("expected resolved affinity path, got %q", cfg.Resolve(cfg.Affinity))
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nlocations:\n  paths: [./world]\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Server.Transport != TransportStdio {
			t.Fatalf("expected stdio default, got %q", cfg.Server.Transport)
		}
		if cfg.Server.Addr != ":8080" {
			t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nlocations:\n  paths: [./world]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\nlocations:\n  paths: [./world]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("no location paths", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("bad transport", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nlocations:\n  paths: [./world]\nserver:\n  transport: grpc\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("bad dsn scheme", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nlocations:\n  paths: [./world]\ndatabase:\n  dsn: mysql://x\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
