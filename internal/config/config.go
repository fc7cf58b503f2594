package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBPath        string
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AdminEmails   []string
	AdminPassword string
	ProviderDelay time.Duration
}

// Load reads configuration from the environment, after loading a local .env
// file when present. AdminEmails come back normalized: lower-cased, trimmed,
// empty entries dropped.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          env("STORYREEL_ADDR", ":8080"),
		DBPath:        env("STORYREEL_DB_PATH", "storyreel.db"),
		JWTSecret:     env("STORYREEL_JWT_SECRET", "dev-change-me"),
		AccessTTL:     envDuration("STORYREEL_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    envDuration("STORYREEL_REFRESH_TTL", 14*24*time.Hour),
		AdminEmails:   splitEmails(env("STORYREEL_ADMIN_EMAILS", "")),
		AdminPassword: env("STORYREEL_ADMIN_PASSWORD", ""),
		ProviderDelay: envDuration("STORYREEL_PROVIDER_DELAY", 2*time.Second),
	}
}

func splitEmails(raw string) []string {
	parts := strings.Split(raw, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
