// Package config loads service configuration from an optional YAML file and the
// environment, the environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/owid/owid-grapher-sub039/internal/auth"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

// Config holds all configuration values for the application.
type Config struct {
	// Persistence
	StoreDriver string
	DatabaseURL string
	BoltPath    string

	// HTTP server port for the controller
	HTTPPort int

	// Worker-specific configuration
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerMaxBackoff   time.Duration
	WorkerJobTimeout   time.Duration

	// Bucket URL holding the data files named by explorer tables (gocloud.dev/blob)
	DatasourceBucketURL string

	// Auth
	AdminTokenHash string
	InternalToken  string

	// Publish rate limit per explorer
	PublishRateLimit float64
	PublishRateBurst int

	// Observability
	OTELEndpoint string
	LogLevel     string
	LogFormat    string
}

// env names of every key, bound explicitly so they need no prefix.
var envNames = map[string]string{
	"store_driver":          "STORE_DRIVER",
	"database_url":          "DATABASE_URL",
	"bolt_path":             "BOLT_PATH",
	"http_port":             "PORT",
	"worker_concurrency":    "WORKER_CONCURRENCY",
	"worker_poll_interval":  "WORKER_POLL_INTERVAL",
	"worker_max_backoff":    "WORKER_MAX_BACKOFF",
	"worker_job_timeout":    "WORKER_JOB_TIMEOUT",
	"datasource_bucket_url": "DATASOURCE_BUCKET_URL",
	"admin_token":           "ADMIN_TOKEN",
	"admin_token_hash":      "ADMIN_TOKEN_HASH",
	"internal_token":        "INTERNAL_TOKEN",
	"publish_rate_limit":    "PUBLISH_RATE_LIMIT",
	"publish_rate_burst":    "PUBLISH_RATE_BURST",
	"otel_endpoint":         "OTEL_EXPORTER_OTLP_ENDPOINT",
	"log_level":             "LOG_LEVEL",
	"log_format":            "LOG_FORMAT",
}

// Load reads configuration from path (or ./explorers.yaml when path is empty and the
// file exists) and then from environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("bolt_path", "explorers.db")
	v.SetDefault("http_port", 6161)
	v.SetDefault("worker_concurrency", 1)
	v.SetDefault("worker_poll_interval", time.Second)
	v.SetDefault("worker_max_backoff", 30*time.Second)
	v.SetDefault("worker_job_timeout", 5*time.Minute)
	v.SetDefault("publish_rate_limit", 1.0)
	v.SetDefault("publish_rate_burst", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("explorers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		StoreDriver:         v.GetString("store_driver"),
		DatabaseURL:         v.GetString("database_url"),
		BoltPath:            v.GetString("bolt_path"),
		HTTPPort:            v.GetInt("http_port"),
		WorkerConcurrency:   v.GetInt("worker_concurrency"),
		WorkerPollInterval:  v.GetDuration("worker_poll_interval"),
		WorkerMaxBackoff:    v.GetDuration("worker_max_backoff"),
		WorkerJobTimeout:    v.GetDuration("worker_job_timeout"),
		DatasourceBucketURL: v.GetString("datasource_bucket_url"),
		AdminTokenHash:      v.GetString("admin_token_hash"),
		InternalToken:       v.GetString("internal_token"),
		PublishRateLimit:    v.GetFloat64("publish_rate_limit"),
		PublishRateBurst:    v.GetInt("publish_rate_burst"),
		OTELEndpoint:        v.GetString("otel_endpoint"),
		LogLevel:            v.GetString("log_level"),
		LogFormat:           v.GetString("log_format"),
	}
	if cfg.AdminTokenHash == "" {
		if token := v.GetString("admin_token"); token != "" {
			cfg.AdminTokenHash = auth.HashKey(token)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required (env: DATABASE_URL)")
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return errors.New("bolt_path is required (env: BOLT_PATH)")
		}
	default:
		return fmt.Errorf("invalid store_driver %q: must be %s or %s", c.StoreDriver, StoreDriverPostgres, StoreDriverBolt)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.WorkerConcurrency < 1 {
		return errors.New("worker_concurrency must be at least 1")
	}
	if c.WorkerPollInterval <= 0 || c.WorkerMaxBackoff < c.WorkerPollInterval {
		return errors.New("worker_max_backoff must be at least worker_poll_interval, and both positive")
	}
	if c.PublishRateLimit < 0 {
		return errors.New("publish_rate_limit must not be negative")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log_format %q: must be json or text", c.LogFormat)
	}
	return nil
}
