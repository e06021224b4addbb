package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/owid/owid-grapher-sub039/internal/auth"
)

// clearEnv blanks every bound variable so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envNames {
		t.Setenv(env, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorers-test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if err.Error() != "database_url is required (env: DATABASE_URL)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check defaults
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Errorf("expected StoreDriver postgres, got %s", cfg.StoreDriver)
	}
	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.WorkerConcurrency != 1 {
		t.Errorf("expected WorkerConcurrency 1, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerPollInterval != 1*time.Second {
		t.Errorf("expected WorkerPollInterval 1s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.WorkerMaxBackoff != 30*time.Second {
		t.Errorf("expected WorkerMaxBackoff 30s, got %v", cfg.WorkerMaxBackoff)
	}
	if cfg.WorkerJobTimeout != 5*time.Minute {
		t.Errorf("expected WorkerJobTimeout 5m, got %v", cfg.WorkerJobTimeout)
	}
	if cfg.PublishRateLimit != 1 || cfg.PublishRateBurst != 5 {
		t.Errorf("expected publish limit 1/5, got %v/%d", cfg.PublishRateLimit, cfg.PublishRateBurst)
	}
	if cfg.OTELEndpoint != "" {
		t.Errorf("expected no OTELEndpoint, got %s", cfg.OTELEndpoint)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("expected info/json logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("PORT", "9999")
	t.Setenv("WORKER_CONCURRENCY", "5")
	t.Setenv("WORKER_POLL_INTERVAL", "2s")
	t.Setenv("WORKER_MAX_BACKOFF", "1m")
	t.Setenv("DATASOURCE_BUCKET_URL", "file:///srv/data")
	t.Setenv("INTERNAL_TOKEN", "scheduler")
	t.Setenv("PUBLISH_RATE_LIMIT", "0.5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.WorkerConcurrency != 5 {
		t.Errorf("expected WorkerConcurrency 5, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerPollInterval != 2*time.Second || cfg.WorkerMaxBackoff != time.Minute {
		t.Errorf("expected 2s/1m polling, got %v/%v", cfg.WorkerPollInterval, cfg.WorkerMaxBackoff)
	}
	if cfg.DatasourceBucketURL != "file:///srv/data" {
		t.Errorf("expected DatasourceBucketURL from env, got %s", cfg.DatasourceBucketURL)
	}
	if cfg.InternalToken != "scheduler" {
		t.Errorf("expected InternalToken from env, got %s", cfg.InternalToken)
	}
	if cfg.PublishRateLimit != 0.5 {
		t.Errorf("expected PublishRateLimit 0.5, got %v", cfg.PublishRateLimit)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("expected LogFormat text, got %s", cfg.LogFormat)
	}
}

func TestLoad_AdminToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("ADMIN_TOKEN", "editor-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AdminTokenHash != auth.HashKey("editor-token") {
		t.Errorf("plain ADMIN_TOKEN should be stored hashed, got %s", cfg.AdminTokenHash)
	}

	t.Setenv("ADMIN_TOKEN_HASH", "abc123")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AdminTokenHash != "abc123" {
		t.Errorf("ADMIN_TOKEN_HASH should win, got %s", cfg.AdminTokenHash)
	}
}

func TestLoad_BoltDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", "/var/lib/explorers/views.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("bolt mode should not need DATABASE_URL: %v", err)
	}
	if cfg.BoltPath != "/var/lib/explorers/views.db" {
		t.Errorf("expected BoltPath from env, got %s", cfg.BoltPath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"zero concurrency", map[string]string{"WORKER_CONCURRENCY": "0"}},
		{"backoff below poll interval", map[string]string{"WORKER_POLL_INTERVAL": "10s", "WORKER_MAX_BACKOFF": "1s"}},
		{"negative rate limit", map[string]string{"PUBLISH_RATE_LIMIT": "-1"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database_url: "postgres://config-file/db"
http_port: 7777
worker_concurrency: 10
worker_poll_interval: 250ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://config-file/db" {
		t.Errorf("expected DatabaseURL from config file, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 7777 {
		t.Errorf("expected HTTPPort 7777, got %d", cfg.HTTPPort)
	}
	if cfg.WorkerConcurrency != 10 {
		t.Errorf("expected WorkerConcurrency 10, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerPollInterval != 250*time.Millisecond {
		t.Errorf("expected WorkerPollInterval 250ms, got %v", cfg.WorkerPollInterval)
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database_url: "postgres://from-file/db"
http_port: 7777
`)

	// Set env var to override config file
	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("PORT", "8888")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Env should override config file
	if cfg.DatabaseURL != "postgres://from-env/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 8888 {
		t.Errorf("expected HTTPPort 8888 from env, got %d", cfg.HTTPPort)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file")
	}
}
