package config

import (
	"os"
	"testing"
)

func clearWispdEnv() {
	for _, key := range []string{
		"WISPD_ENV", "WISPD_HOST", "WISPD_PORT", "WISPD_IDLE_TIMEOUT",
		"WISPD_JWT_SECRET", "WISPD_ALLOWED_ORIGINS", "WISPD_RATE_LIMIT_RPS",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_Development(t *testing.T) {
	clearWispdEnv()
	os.Setenv("WISPD_ENV", "development")

	cfg := Load()

	if cfg.Environment != "development" {
		t.Errorf("expected development, got %s", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("expected default wildcard origin, got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearWispdEnv()
	os.Setenv("WISPD_PORT", "9090")
	os.Setenv("WISPD_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	defer clearWispdEnv()

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("expected parsed origin list, got %v", cfg.AllowedOrigins)
	}
}
