package db

import (
	"fmt"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// LoadPostgresConfig reads the connection settings from the environment,
// falling back to local development defaults.
func LoadPostgresConfig() PostgresConfig {
	cfg := PostgresConfig{
		Host:         getenv("DB_HOST", "localhost"),
		Port:         5432,
		User:         getenv("DB_USER", "postgres"),
		Password:     os.Getenv("DB_PASSWORD"),
		DBName:       getenv("DB_NAME", "coupon_system"),
		SSLMode:      getenv("DB_SSLMODE", "disable"),
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}
	if p, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	if n, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS")); err == nil && n > 0 {
		cfg.MaxOpenConns = n
	}
	if n, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS")); err == nil && n > 0 {
		cfg.MaxIdleConns = n
	}
	return cfg
}

// DSN renders the lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
