package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnvFile(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DB_DSN", "HTTP_ADDR", "SUBMIT_TIMEOUT_SECONDS", "LOG_LEVEL", "CSRF_ENFORCED"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	t.Setenv("HTTP_ADDR", ":9090")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "DB_DRIVER=sqlite\nHTTP_ADDR=:7070\nSUBMIT_TIMEOUT_SECONDS=3\nLOG_LEVEL=debug\nCSRF_ENFORCED=yes\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("process env must win, got %s", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBDSN != "scentquiz.db" {
		t.Fatalf("unexpected db config %s %s", cfg.DBDriver, cfg.DBDSN)
	}
	if cfg.SubmitTimeout != 3*time.Second || cfg.LogLevel != slog.LevelDebug || !cfg.CSRFEnforced {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.env"))
	if err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Fatalf("expected default rate limit, got %d", cfg.RateLimitPerMin)
	}
}
