package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents configuration data for the status monitor.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	HealthPath     string        `yaml:"health_path"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListenAddr     string        `yaml:"listen_addr"`
	PagePath       string        `yaml:"page_path"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	Banner         Banner        `yaml:"banner"`
	Toast          Toast         `yaml:"toast"`
}

// Banner configures the offline banner.
type Banner struct {
	Title     string        `yaml:"title"`
	Message   string        `yaml:"message"`
	ShowDelay time.Duration `yaml:"show_delay"`
	HideDelay time.Duration `yaml:"hide_delay"`
}

// Toast configures toast timing.
type Toast struct {
	ShowDelay time.Duration `yaml:"show_delay"`
	HideDelay time.Duration `yaml:"hide_delay"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000",
		HealthPath:     "/api/health",
		CheckInterval:  30 * time.Second,
		ProbeTimeout:   3 * time.Second,
		RequestTimeout: 10 * time.Second,
		ListenAddr:     ":8090",
		LogLevel:       "info",
		Banner: Banner{
			Title:     "Server Offline",
			Message:   "The server is not reachable. Some features are unavailable until it comes back.",
			ShowDelay: 10 * time.Millisecond,
			HideDelay: 300 * time.Millisecond,
		},
		Toast: Toast{
			ShowDelay: 100 * time.Millisecond,
			HideDelay: 3000 * time.Millisecond,
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize resets non-positive durations and empty fields to defaults and
// validates the rest.
func (c *Config) Normalize() error {
	def := DefaultConfig()

	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url %q must start with http:// or https://", c.BaseURL)
	}
	if c.HealthPath == "" {
		c.HealthPath = def.HealthPath
	}
	if !strings.HasPrefix(c.HealthPath, "/") {
		return fmt.Errorf("health_path %q must start with /", c.HealthPath)
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	positive(&c.CheckInterval, def.CheckInterval)
	positive(&c.ProbeTimeout, def.ProbeTimeout)
	positive(&c.RequestTimeout, def.RequestTimeout)
	positive(&c.Banner.ShowDelay, def.Banner.ShowDelay)
	positive(&c.Banner.HideDelay, def.Banner.HideDelay)
	positive(&c.Toast.ShowDelay, def.Toast.ShowDelay)
	positive(&c.Toast.HideDelay, def.Toast.HideDelay)
	return nil
}

func positive(d *time.Duration, fallback time.Duration) {
	if *d <= 0 {
		*d = fallback
	}
}
