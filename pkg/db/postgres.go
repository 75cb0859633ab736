package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// connMaxLifetime stays under the idle-connection timeouts of typical managed
// Postgres offerings so the pool recycles before the server kills sockets.
const connMaxLifetime = 30 * time.Minute

// NewPostgresConnection opens a pooled connection and verifies it with a ping.
// The returned handle is the single source of truth for all coupon state; the
// caller owns its lifecycle and must Close it on shutdown.
func NewPostgresConnection(cfg PostgresConfig) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	return conn, nil
}
