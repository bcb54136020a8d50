package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration from environment variables.
type Config struct {
	Port         int
	DBPath       string
	StationsFile string // optional YAML file seeding station entries

	RateLimitPerDay int    // successful fetches per station and calendar day
	NTAFeedFormat   string // "json" or "protobuf"
	UserAgent       string

	CORSOrigins []string
	LogLevel    slog.Level
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is honoured if present; variables
// already set in the environment take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            envInt("TRANSITMON_PORT", 8080),
		DBPath:          envStr("TRANSITMON_DB_PATH", "./transitmon.db"),
		StationsFile:    envStr("TRANSITMON_STATIONS_FILE", ""),
		RateLimitPerDay: envInt("TRANSITMON_RATE_LIMIT_PER_DAY", 1000),
		NTAFeedFormat:   envStr("TRANSITMON_NTA_FEED_FORMAT", "json"),
		UserAgent:       envStr("TRANSITMON_USER_AGENT", ""),
		CORSOrigins:     envList("TRANSITMON_CORS_ORIGINS", []string{"*"}),
		LogLevel:        envLevel("TRANSITMON_LOG_LEVEL", slog.LevelInfo),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return fallback
	}
	return l
}
