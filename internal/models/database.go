package models

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

// Database wraps the PostgreSQL connection pool used by all services.
type Database struct {
	Pool *pgxpool.Pool
}

// DatabaseConfig holds settings for the connection pool.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func DefaultDatabaseConfig(url string) DatabaseConfig {
	return DatabaseConfig{
		URL:             url,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 1 * time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewDatabase opens the pool and verifies connectivity before returning.
func NewDatabase(ctx context.Context, cfg DatabaseConfig) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{Pool: pool}, nil
}

// Close releases the pool. Call via defer on shutdown.
func (db *Database) Close() {
	db.Pool.Close()
}

// Health pings the database with a short deadline. Used by readiness and
// detailed health endpoints.
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Pool.Ping(ctx)
}

// Stats exposes pool statistics for the detailed health endpoint.
func (db *Database) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

// BeginTx starts a transaction for multi-statement writes.
func (db *Database) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

// QueryTimeout is the default per-query deadline. Individual queries can
// tighten it with their own context.
const QueryTimeout = 10 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, QueryTimeout)
}

// Migrate runs goose migrations from dir against db.
func Migrate(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// MigrateFS runs goose migrations from an embedded filesystem.
func MigrateFS(db *sql.DB, migrationFS fs.FS, dir string) error {
	if dir == "" {
		dir = "."
	}
	goose.SetBaseFS(migrationFS)
	defer func() {
		// Restore OS filesystem lookups for any later goose use.
		goose.SetBaseFS(nil)
	}()
	return Migrate(db, dir)
}

// RunMigrations opens a throwaway database/sql connection (goose speaks
// database/sql, the pool speaks pgx), applies the embedded migrations and
// closes it again.
func RunMigrations(url string, migrationFS fs.FS) error {
	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer sqlDB.Close()

	return MigrateFS(sqlDB, migrationFS, ".")
}
