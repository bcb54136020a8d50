package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"TRANSITMON_PORT", "TRANSITMON_RATE_LIMIT_PER_DAY", "TRANSITMON_CORS_ORIGINS", "TRANSITMON_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.RateLimitPerDay != 1000 {
		t.Errorf("RateLimitPerDay = %d, want 1000", cfg.RateLimitPerDay)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRANSITMON_PORT", "9090")
	t.Setenv("TRANSITMON_RATE_LIMIT_PER_DAY", "not a number")
	t.Setenv("TRANSITMON_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("TRANSITMON_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RateLimitPerDay != 1000 {
		t.Errorf("invalid int should fall back, got %d", cfg.RateLimitPerDay)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TRANSITMON_DB_PATH", "")
	os.Unsetenv("TRANSITMON_DB_PATH")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TRANSITMON_DB_PATH=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.DBPath != "/tmp/from-dotenv.db" {
		t.Errorf("DBPath = %q, want value from .env", cfg.DBPath)
	}
}
