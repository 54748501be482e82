package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"JWT_SECRET", "STORAGE_DRIVER", "EVENTS_ATOMIC", "SWEEP_TIMEZONE", "SERVER_PORT"} {
		t.Setenv(key, "")
	}
}

func TestLoadLayersAndDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
jwt:
  secret: ${TEST_JWT_SECRET}
sweep:
  timezone: Europe/Berlin
storage:
  driver: postgres
`)
	writeFile(t, dir, "test.yaml", `
storage:
  driver: memory
events:
  atomic: false
`)
	writeFile(t, dir, "secrets.env", "TEST_JWT_SECRET=from-secrets\n")

	cfg, err := Load("test", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.JWT.Secret != "from-secrets" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Events.Atomic {
		t.Error("events.atomic should be overridden to false")
	}
	if cfg.Sweep.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q", cfg.Sweep.Timezone)
	}
	if cfg.Sweep.Interval != 24*time.Hour {
		t.Errorf("sweep interval default = %v", cfg.Sweep.Interval)
	}
	if cfg.Sweep.OverdueAction != "task_updated" {
		t.Errorf("overdue action default = %q", cfg.Sweep.OverdueAction)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Errorf("access ttl default = %v", cfg.JWT.AccessTTL)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: file-secret\n")

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("EVENTS_ATOMIC", "false")
	t.Setenv("SERVER_PORT", ":9999")

	cfg, err := Load("local", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Events.Atomic {
		t.Error("EVENTS_ATOMIC=false not applied")
	}
	if cfg.Server.Port != ":9999" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, true},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"bad timezone", func(c *Config) { c.Sweep.Timezone = "Mars/Olympus" }, true},
		{"zero interval", func(c *Config) { c.Sweep.Interval = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWT.Secret = "s"
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
