package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: "9090"
session:
  secret: from-file
  store: server
magicLink:
  secret: from-file
  expiration: 15m
  publicUrl: https://props.example.com
  sameDevice: true
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MAGIC_LINK_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Session.Store != "server" || !cfg.MagicLink.SameDevice {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MagicLink.Secret != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.MagicLink.Secret)
	}
	if cfg.Session.Secret != "from-file" {
		t.Fatalf("expected file value, got %q", cfg.Session.Secret)
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Fatalf("expected redis override, got %q", cfg.Redis.Addr)
	}
	if cfg.MagicLink.PublicURL != "https://props.example.com" {
		t.Fatalf("unexpected public url %q", cfg.MagicLink.PublicURL)
	}
	if got := TTLDuration(cfg.MagicLink.Expiration, time.Hour); got != 15*time.Minute {
		t.Fatalf("expected 15m, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRequiresSecrets(t *testing.T) {
	var cfg Config
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingMagicLinkSecret) || !errors.Is(err, ErrMissingSessionSecret) {
		t.Fatalf("expected both secret errors, got %v", err)
	}

	cfg.MagicLink.Secret = "a"
	cfg.Session.Secret = "b"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
	if got := TTLDuration("0s", time.Minute); got != 0 {
		t.Fatalf("expected explicit zero, got %v", got)
	}
}
