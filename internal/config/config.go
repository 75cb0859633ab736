package config

import (
	"os"
	"strconv"
)

// Config holds the application settings outside the database connection.
type Config struct {
	Addr       string
	JWTSecret  string
	BcryptCost int
	// LoginRateMax is the per-IP request budget for /api/auth/login within a
	// 15 minute window.
	LoginRateMax int
}

// Load reads configuration from the environment with development fallbacks.
func Load() Config {
	cfg := Config{
		Addr:         ":" + getEnv("PORT", "3000"),
		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		BcryptCost:   10,
		LoginRateMax: 100,
	}
	if n, err := strconv.Atoi(os.Getenv("BCRYPT_ROUNDS")); err == nil && n > 0 {
		cfg.BcryptCost = n
	}
	if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MAX")); err == nil && n > 0 {
		cfg.LoginRateMax = n
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
