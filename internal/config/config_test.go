package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  port: \"9090\"\nredis:\n  addr: localhost:6379\nanswers:\n  ttl: 24h\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected redis addr from file, got %q", cfg.Redis.Addr)
	}
	if got := TTLDuration(cfg.Answers.TTL, time.Hour); got != 24*time.Hour {
		t.Fatalf("expected 24h answers ttl, got %v", got)
	}
	if cfg.Reminders.Schedule != "@every 24h" {
		t.Fatalf("expected default reminder schedule, got %q", cfg.Reminders.Schedule)
	}
}

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quiz")
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quiz" {
		t.Fatalf("expected postgres url from env, got %q", cfg.Postgres.URL)
	}
	if cfg.Auth.Secret != "s3cret" {
		t.Fatalf("expected secret from env, got %q", cfg.Auth.Secret)
	}
	if cfg.Server.Port == "" {
		t.Fatalf("expected default port")
	}
}

func TestLoadHasNoDefaultAuthSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "" {
		t.Fatalf("expected no default secret, got %q", cfg.Auth.Secret)
	}
	if _, err := cfg.AuthSecret(); !errors.Is(err, ErrNoAuthSecret) {
		t.Fatalf("expected ErrNoAuthSecret, got %v", err)
	}

	cfg.Auth.Secret = "from-file"
	if secret, err := cfg.AuthSecret(); err != nil || secret != "from-file" {
		t.Fatalf("expected configured secret, got %q, %v", secret, err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty: got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("garbage: got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("parsed: got %v", got)
	}
}
