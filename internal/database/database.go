// Package database opens the SQL connection pool and carries transactions through
// context for the key version and audit event repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported DB_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	// DriverMemory keeps key versions and audit events in process memory. The chain
	// does not survive a restart; intended for development and tests.
	DriverMemory = "memory"
)

// pingTimeout bounds the connectivity check done by Connect.
const pingTimeout = 10 * time.Second

// Drivers lists every accepted DB_DRIVER value.
func Drivers() []string {
	return []string{DriverPostgres, DriverMySQL, DriverMemory}
}

// IsSQL reports whether driver is backed by a SQL connection.
func IsSQL(driver string) bool {
	return driver == DriverPostgres || driver == DriverMySQL
}

// Config holds the pool settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect opens the pool and verifies it with a ping.
func Connect(cfg Config) (*sql.DB, error) {
	if !IsSQL(cfg.Driver) {
		if slices.Contains(Drivers(), cfg.Driver) {
			return nil, fmt.Errorf("driver %q has no sql connection", cfg.Driver)
		}
		return nil, fmt.Errorf("unsupported database driver %q (want one of %v)", cfg.Driver, Drivers())
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
