package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingMagicLinkSecret = errors.New("magicLink.secret (MAGIC_LINK_SECRET) is required")
	ErrMissingSessionSecret   = errors.New("session.secret (SESSION_SECRET) is required")
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Session struct {
		Secret string `yaml:"secret"`
		// Store is "cookie" or "server".
		Store      string `yaml:"store"`
		CookieName string `yaml:"cookieName"`
		MaxAge     string `yaml:"maxAge"`
		Secure     bool   `yaml:"secure"`
	} `yaml:"session"`
	MagicLink struct {
		Secret       string `yaml:"secret"`
		CallbackPath string `yaml:"callbackPath"`
		// PublicURL pins the origin of sent links instead of trusting forwarded headers.
		PublicURL  string `yaml:"publicUrl"`
		Expiration string `yaml:"expiration"`
		SameDevice bool   `yaml:"sameDevice"`
		// SentRedirect is where the visitor lands after the link is sent.
		SentRedirect    string `yaml:"sentRedirect"`
		SuccessRedirect string `yaml:"successRedirect"`
		FailureRedirect string `yaml:"failureRedirect"`
	} `yaml:"magicLink"`
	Sheets struct {
		TTL string `yaml:"ttl"`
	} `yaml:"sheets"`
	SMS struct {
		// Sender is "log" or "redis".
		Sender    string `yaml:"sender"`
		OutboxKey string `yaml:"outboxKey"`
		AppName   string `yaml:"appName"`
	} `yaml:"sms"`
	Leaderboard struct {
		PollInterval string `yaml:"pollInterval"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path, after loading a .env file if one is present, and applies
// environment overrides. A missing config file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.MagicLink.Secret, "MAGIC_LINK_SECRET")
	override(&c.Session.Secret, "SESSION_SECRET")
	override(&c.Postgres.URL, "DATABASE_URL")
	override(&c.Redis.Addr, "REDIS_ADDR")
}

// Validate reports configuration the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.MagicLink.Secret == "" {
		errs = append(errs, ErrMissingMagicLinkSecret)
	}
	if c.Session.Secret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}
	return errors.Join(errs...)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
