// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"citizenship-adjudicator/internal/common/config"

	"github.com/lib/pq"
)

// PostgresClient owns the connection pool behind the PostgreSQL result store.
type PostgresClient struct {
	DB     *sql.DB
	schema string
}

// NewPostgres opens a pool whose sessions resolve result tables in cfg.Schema.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db, schema: cfg.Schema}, nil
}

// EnsureSchema creates the configured schema so the result table can be
// bootstrapped inside it. It is a no-op without a schema.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if c.schema == "" {
		return nil
	}
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(c.schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", c.schema, err)
	}
	return nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
