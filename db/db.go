// Package db provides database connectivity and migration functionality for
// the userdir service. It establishes the pgx connection pool, enables the
// PostgreSQL extensions the service relies on, runs schema migrations, and
// defines the small Pool/Conn interfaces the rest of the application uses to
// acquire per-request connections.
package db

import (
	"context"
	"fmt"
	"time"

	// golang-migrate handles schema migrations from SQL files on disk.
	"github.com/golang-migrate/migrate/v4"
	// The postgres database driver and file source driver are imported for
	// their side effect of registering themselves with migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	// migrate's postgres driver runs over database/sql with lib/pq.
	_ "github.com/lib/pq"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/userdir-go/apperror"
	"github.com/user/userdir-go/config"
)

// NewPool establishes a connection pool to PostgreSQL using the provided
// configuration. The pool is configured with the max connection count from
// config plus idle and lifetime limits, and the connection is verified with
// a ping before the pool is handed to the caller.
func NewPool(cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	// Bounded pool creation so an unreachable database fails startup quickly
	// instead of blocking forever.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error creating pool for database %s", cfg.DBName), err)
	}

	// Verify the connection actually works before returning the pool.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error connecting to database %s", cfg.DBName), err)
	}

	return pool, nil
}

// EnableExtensions enables the PostgreSQL extensions required by the userdir
// service. pg_trgm backs the trigram index used by the case-insensitive
// substring search on usernames.
func EnableExtensions(pool *pgxpool.Pool) error {
	extensions := []string{"pg_trgm"}

	for _, ext := range extensions {
		// CREATE EXTENSION IF NOT EXISTS is idempotent.
		query := fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", ext)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := pool.Exec(ctx, query)
		cancel()
		if err != nil {
			return apperror.NewDatabaseError(fmt.Sprintf("failed to create extension %s", ext), err)
		}
	}

	return nil
}

// RunMigrations applies any pending migrations from the given directory.
// Migration files follow golang-migrate's naming scheme
// ({version}_{title}.up.sql / .down.sql). migrate cannot drive a pgx pool
// directly, so it gets its own short-lived database/sql connection built
// from the same config.
func RunMigrations(cfg *config.DatabaseConfig, migrationsPath string) error {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return apperror.NewMigrationError("failed to create migrator", err)
	}
	defer func() {
		// Close releases both the source and the database handle migrate
		// opened; failures here are worth noting but not fatal.
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			if srcErr != nil {
				fmt.Printf("Warning: error closing migration source: %v\n", srcErr)
			}
			if dbErr != nil {
				fmt.Printf("Warning: error closing migration database instance: %v\n", dbErr)
			}
		}
	}()

	// ErrNoChange just means the schema is already current.
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return apperror.NewMigrationError("failed to run migrations", err)
	}

	return nil
}
