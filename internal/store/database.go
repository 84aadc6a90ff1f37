package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database wraps the stats warehouse connection. The schema (game logs,
// rolling snapshots, prop outcomes, team pace) is owned by the collection
// service; the modeling side only reads it, except for the rolling-stats
// refresh which upserts into player_rolling_stats.
type Database struct {
	conn *sql.DB
	dsn  string
}

// NewDatabase creates a new database connection to the stats warehouse
func NewDatabase(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		conn: db,
		dsn:  dsn,
	}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

// HealthCheck pings the database to verify the connection
func (db *Database) HealthCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
