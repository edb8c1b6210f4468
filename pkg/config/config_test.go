package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Fatalf("Port = %s, want 8000", cfg.Port)
	}
	if cfg.Scheduler.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v, want 30s", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.ToleranceMargin != 5*time.Second {
		t.Fatalf("ToleranceMargin = %v, want 5s", cfg.Scheduler.ToleranceMargin)
	}
	if cfg.Scheduler.SweepGrace != 5*time.Minute {
		t.Fatalf("SweepGrace = %v, want 5m", cfg.Scheduler.SweepGrace)
	}
	if cfg.Scheduler.StartDelay != 5*time.Second {
		t.Fatalf("StartDelay = %v, want 5s", cfg.Scheduler.StartDelay)
	}
	if cfg.Scheduler.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d, want 5", cfg.Scheduler.MaxAttempts)
	}
	if !cfg.Email.Enabled {
		t.Fatal("email should be enabled by default")
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("DISABLE_EMAIL", "true")
	t.Setenv("EMAIL_USER", "pharmacy@example.com")
	t.Setenv("SMTP_PORT", "465")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.Email.Enabled {
		t.Fatal("DISABLE_EMAIL=true should disable email")
	}
	if cfg.Email.FromAddress != "pharmacy@example.com" {
		t.Fatalf("FromAddress = %q, want EMAIL_USER fallback", cfg.Email.FromAddress)
	}
	if cfg.Email.SMTPPort != 465 {
		t.Fatalf("SMTPPort = %d, want 465", cfg.Email.SMTPPort)
	}
}

func TestLoadPrefixedEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := []byte("storage:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "r.db") + "\nscheduler:\n  poll_interval: 10s\n")
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_SCHEDULER__MAX_ATTEMPTS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("Driver = %s, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Scheduler.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v, want 10s", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.Scheduler.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:   StorageConfig{Driver: "memory"},
			Scheduler: SchedulerConfig{PollInterval: time.Second, MaxAttempts: 1},
			Email:     EmailConfig{Enabled: true, Transport: "smtp"},
		}
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg = base()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for postgres without DATABASE_URL")
	}

	cfg = base()
	cfg.Scheduler.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}

	cfg = base()
	cfg.Scheduler.PollInterval = 500 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sub-second poll interval")
	}

	cfg = base()
	cfg.Email.Transport = "pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown transport")
	}

	cfg.Email.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("transport should not matter when email is disabled: %v", err)
	}
}
