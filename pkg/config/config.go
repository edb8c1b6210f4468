package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

type Config struct {
	Port        string          `koanf:"port"`
	Environment string          `koanf:"environment"`
	LogLevel    string          `koanf:"log_level"`
	Storage     StorageConfig   `koanf:"storage"`
	Scheduler   SchedulerConfig `koanf:"scheduler"`
	Email       EmailConfig     `koanf:"email"`
	Auth        AuthConfig      `koanf:"auth"`
}

type StorageConfig struct {
	Driver      string        `koanf:"driver"` // postgres, sqlite or memory
	DatabaseURL string        `koanf:"database_url"`
	SQLitePath  string        `koanf:"sqlite_path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

type SchedulerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	ToleranceMargin time.Duration `koanf:"tolerance_margin"`
	SweepGrace      time.Duration `koanf:"sweep_grace"`
	StartDelay      time.Duration `koanf:"start_delay"`
	TickTimeout     time.Duration `koanf:"tick_timeout"`
	MaxAttempts     int           `koanf:"max_attempts"`
}

type EmailConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Transport   string        `koanf:"transport"` // smtp or gmail
	FromName    string        `koanf:"from_name"`
	FromAddress string        `koanf:"from_address"`
	Timeout     time.Duration `koanf:"timeout"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`

	GmailClientID     string `koanf:"gmail_client_id"`
	GmailClientSecret string `koanf:"gmail_client_secret"`
	GmailRefreshToken string `koanf:"gmail_refresh_token"`

	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`
}

type AuthConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry"`
}

// legacyEnv maps the flat variable names used by existing deployments to config keys.
var legacyEnv = map[string]string{
	"PORT":                 "port",
	"ENVIRONMENT":          "environment",
	"LOG_LEVEL":            "log_level",
	"DATABASE_URL":         "storage.database_url",
	"STORAGE_DRIVER":       "storage.driver",
	"SQLITE_PATH":          "storage.sqlite_path",
	"EMAIL_USER":           "email.smtp_username",
	"EMAIL_PASS":           "email.smtp_password",
	"EMAIL_TRANSPORT":      "email.transport",
	"SMTP_HOST":            "email.smtp_host",
	"SMTP_PORT":            "email.smtp_port",
	"GOOGLE_CLIENT_ID":     "email.gmail_client_id",
	"GOOGLE_CLIENT_SECRET": "email.gmail_client_secret",
	"GMAIL_REFRESH_TOKEN":  "email.gmail_refresh_token",
	"JWT_SECRET":           "auth.jwt_secret",
	"JWT_ACCESS_EXPIRY":    "auth.token_expiry",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":        "8000",
		"environment": "development",
		"log_level":   "info",
		"storage": map[string]interface{}{
			"driver":       "postgres",
			"database_url": "",
			"sqlite_path":  "data/reminders.db",
			"busy_timeout": "5s",
		},
		"scheduler": map[string]interface{}{
			"enabled":          true,
			"poll_interval":    "30s",
			"tolerance_margin": "5s",
			"sweep_grace":      "5m",
			"start_delay":      "5s",
			"tick_timeout":     "2m",
			"max_attempts":     5,
		},
		"email": map[string]interface{}{
			"enabled":         true,
			"transport":       "smtp",
			"from_name":       "SK Medicals",
			"from_address":    "",
			"timeout":         "30s",
			"smtp_host":       "smtp.gmail.com",
			"smtp_port":       587,
			"rate_per_second": 1.0,
			"rate_burst":      5,
		},
		"auth": map[string]interface{}{
			"jwt_secret":   "",
			"token_expiry": "15m",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, APP_* variables
// and the legacy flat variables, in that order. A .env file is loaded first if present.
func Load(configPath string) (*Config, error) {
	// godotenv does not override variables already set in the environment
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}
	if v := os.Getenv("DISABLE_EMAIL"); v != "" {
		_ = k.Set("email.enabled", !strings.EqualFold(v, "true"))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Email.FromAddress == "" {
		cfg.Email.FromAddress = cfg.Email.SMTPUsername
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Email.Transport = strings.ToLower(strings.TrimSpace(cfg.Email.Transport))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	// the cron schedule cannot tick faster than once per second
	if c.Scheduler.PollInterval < time.Second {
		return fmt.Errorf("scheduler.poll_interval must be at least 1s, got %s", c.Scheduler.PollInterval)
	}
	if c.Scheduler.ToleranceMargin < 0 || c.Scheduler.SweepGrace < 0 || c.Scheduler.StartDelay < 0 {
		return errors.New("scheduler durations must not be negative")
	}
	if c.Scheduler.MaxAttempts <= 0 {
		return fmt.Errorf("scheduler.max_attempts must be positive, got %d", c.Scheduler.MaxAttempts)
	}

	if c.Email.Enabled {
		switch c.Email.Transport {
		case "smtp", "gmail":
		default:
			return fmt.Errorf("unknown email transport: %s", c.Email.Transport)
		}
	}
	return nil
}

// IsProduction reports whether the service runs in a production-like environment
func (c *Config) IsProduction() bool {
	environment := strings.ToLower(c.Environment)
	return environment == "production" || environment == "staging"
}
