package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// DB database connection pool
type DB struct {
	Pool *pgxpool.Pool
	// SQL is a database/sql view over Pool used by the stores
	SQL *sql.DB
}

// New opens the pool and pings it. Failure here is fatal for the process.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	log := logger.GetLogger("db")

	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{
		Pool: pool,
		SQL:  stdlib.OpenDBFromPool(pool),
	}, nil
}

// Ping checks the connection (readiness probe)
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the database/sql handle and the pool
func (db *DB) Close() {
	if db.SQL != nil {
		_ = db.SQL.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}
