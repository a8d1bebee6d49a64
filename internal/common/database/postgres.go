// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"astroscope/internal/common/config"

	_ "github.com/lib/pq"
)

// LessonsSchema creates the table backing the postgres corpus source.
const LessonsSchema = `
CREATE TABLE IF NOT EXISTS lessons (
	lesson_id         INTEGER PRIMARY KEY,
	title             TEXT NOT NULL,
	abstract          TEXT NOT NULL DEFAULT '',
	driving_event     TEXT NOT NULL DEFAULT '',
	lesson            TEXT NOT NULL DEFAULT '',
	recommendation    TEXT NOT NULL DEFAULT '',
	mission           TEXT NOT NULL DEFAULT '',
	center            TEXT NOT NULL DEFAULT '',
	subject_primary   TEXT NOT NULL DEFAULT '',
	subject_secondary TEXT[] NOT NULL DEFAULT '{}',
	organization      TEXT NOT NULL DEFAULT 'NASA',
	lesson_date       TEXT NOT NULL DEFAULT ''
)`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pool against the configured database. The connection
// is established lazily; call Ping to verify it.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an already opened handle, e.g. one from sqlmock.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureLessonsSchema creates the lessons table when missing.
func (c *PostgresClient) EnsureLessonsSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, LessonsSchema); err != nil {
		return fmt.Errorf("create lessons table: %w", err)
	}
	return nil
}
