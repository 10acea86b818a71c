// Package config loads cmd/wispd's own settings from the environment (and
// an optional .env file), distinct from Application's WISP_-prefixed
// runtime settings map — this is the demo binary's startup configuration.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds wispd's startup configuration, with environment-driven
// fallbacks so nothing here is hardcoded into the binary.
type Config struct {
	Environment string // "development" or "production"
	Host        string
	Port        int
	IdleTimeout time.Duration

	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
}

// Load reads .env (if present — its absence is not an error, matching
// godotenv's own convention for environments where real env vars are set
// directly) and then the process environment, applying defaults for
// anything unset. In production it refuses to start with a missing or
// placeholder JWTSecret.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("WISPD_ENV", "development"),
		Host:           getEnv("WISPD_HOST", "0.0.0.0"),
		Port:           getEnvInt("WISPD_PORT", 8080),
		IdleTimeout:    getEnvDuration("WISPD_IDLE_TIMEOUT", 60*time.Second),
		JWTSecret:      getEnv("WISPD_JWT_SECRET", ""),
		AllowedOrigins: getEnvList("WISPD_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:   getEnvFloat("WISPD_RATE_LIMIT_RPS", 10),
	}

	if cfg.Environment == "production" && len(cfg.JWTSecret) < 32 {
		slog.Error("refusing to start in production without a real WISPD_JWT_SECRET (32+ chars)")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
