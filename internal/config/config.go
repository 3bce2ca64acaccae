package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Thermoscan server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Images   ImageConfig
	Detector DetectorConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type ImageConfig struct {
	Dir string
}

type DetectorConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AnalysisConfig struct {
	// Interval between scheduler ticks. A tick still running when the next one
	// fires causes the next one to be skipped, never overlapped.
	Interval time.Duration
	// RunOnStartup triggers one analysis pass immediately after boot instead of
	// waiting for the first tick.
	RunOnStartup bool
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("THERMOSCAN_PORT", 8080),
			Env:  envString("THERMOSCAN_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Images: ImageConfig{
			Dir: envString("IMAGE_DIR", "data/images"),
		},
		Detector: DetectorConfig{
			BaseURL: os.Getenv("DETECTOR_BASE_URL"),
			Timeout: envDuration("DETECTOR_TIMEOUT", 30*time.Second),
		},
		Analysis: AnalysisConfig{
			Interval:     envDuration("ANALYSIS_INTERVAL", 3*time.Minute),
			RunOnStartup: envBool("ANALYSIS_RUN_ON_STARTUP", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Detector.BaseURL == "" {
		return fmt.Errorf("DETECTOR_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Detector.BaseURL, "http://") && !strings.HasPrefix(c.Detector.BaseURL, "https://") {
		return fmt.Errorf("DETECTOR_BASE_URL must start with http:// or https://, got %q", c.Detector.BaseURL)
	}

	if c.Analysis.Interval < time.Second {
		return fmt.Errorf("ANALYSIS_INTERVAL must be at least 1s, got %s", c.Analysis.Interval)
	}

	return nil
}

// The env helpers fall back to the default on unset or malformed values.
// Hard requirements are enforced in validate, not here.

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
