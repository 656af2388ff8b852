// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"` // Loaded from environment
	// TTL for cached availability entries, in seconds.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type PaymentConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"-"` // Loaded from environment
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Currency       string `yaml:"currency"`
}

// BookingConfig pins the policy knobs of the slot engine: popularity
// heuristic, pending-payment expiry, and the venue timezone all dates
// and wall-clock times are interpreted in.
type BookingConfig struct {
	Timezone             string `yaml:"timezone"`
	PopularityThreshold  int    `yaml:"popularity_threshold"`
	PopularityWindowDays int    `yaml:"popularity_window_days"`
	PopularityCron       string `yaml:"popularity_cron"`
	PendingTTLMinutes    int    `yaml:"pending_ttl_minutes"`
	ExpiryCron           string `yaml:"expiry_cron"`
}

type RateLimitConfig struct {
	ConfirmCooldownSeconds int `yaml:"confirm_cooldown_seconds"`
	ConfirmMaxPerHour      int `yaml:"confirm_max_per_hour"`
	ConfirmMaxIPPerHour    int `yaml:"confirm_max_ip_per_hour"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Booking   BookingConfig   `yaml:"booking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Payment.APIKey = os.Getenv("PAYMENT_API_KEY")

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.PopularityThreshold == 0 {
		c.Booking.PopularityThreshold = 3
	}
	if c.Booking.PopularityWindowDays == 0 {
		c.Booking.PopularityWindowDays = 28
	}
	if c.Booking.PopularityCron == "" {
		c.Booking.PopularityCron = "0 3 * * *"
	}
	if c.Booking.PendingTTLMinutes == 0 {
		c.Booking.PendingTTLMinutes = 15
	}
	if c.Booking.ExpiryCron == "" {
		c.Booking.ExpiryCron = "*/10 * * * *"
	}
	if c.Redis.CacheTTLSeconds == 0 {
		c.Redis.CacheTTLSeconds = 60
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 30
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	if c.RateLimit.ConfirmCooldownSeconds == 0 {
		c.RateLimit.ConfirmCooldownSeconds = 5
	}
	if c.RateLimit.ConfirmMaxPerHour == 0 {
		c.RateLimit.ConfirmMaxPerHour = 30
	}
	if c.RateLimit.ConfirmMaxIPPerHour == 0 {
		c.RateLimit.ConfirmMaxIPPerHour = 60
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if c.Payment.BaseURL == "" {
		return fmt.Errorf("payment base_url is required")
	}

	return nil
}

// Location returns the venue timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
