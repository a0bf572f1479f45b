package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KANBD_PORT", "7070")
	t.Setenv("KANBD_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadFromYAMLPartialOverride(t *testing.T) {
	// YAML sets only the engine section; everything else keeps defaults.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
engine:
  max_attempts: 9
  retry_jitter: 20ms
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Engine.MaxAttempts != 9 {
		t.Errorf("got max_attempts %d, want 9", cfg.Engine.MaxAttempts)
	}
	if cfg.Engine.RetryJitter != 20*time.Millisecond {
		t.Errorf("got retry_jitter %v, want 20ms", cfg.Engine.RetryJitter)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port lost: got %q", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("default max_conns lost: got %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.MaxAttempts != 5 {
		t.Errorf("got max_attempts %d, want default 5", cfg.Engine.MaxAttempts)
	}
	if cfg.Cache.BoardTTL != 5*time.Second {
		t.Errorf("got board_ttl %v, want default 5s", cfg.Cache.BoardTTL)
	}
}

func TestLoadFromMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadFromValidation(t *testing.T) {
	t.Setenv("KANBD_ENGINE_MAX_ATTEMPTS", "0")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected validation error for max_attempts 0")
	}
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/kanbd")
	t.Setenv("NATS_URL", "nats://queue:4222")
	t.Setenv("KANBD_CACHE_BOARD_TTL", "30s")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://u:p@db:5432/kanbd" {
		t.Errorf("got dsn %q", cfg.Postgres.DSN)
	}
	if cfg.NATS.URL != "nats://queue:4222" {
		t.Errorf("got nats url %q", cfg.NATS.URL)
	}
	if cfg.Cache.BoardTTL != 30*time.Second {
		t.Errorf("got board_ttl %v, want 30s", cfg.Cache.BoardTTL)
	}
}
