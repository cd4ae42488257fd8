package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New opens a pool from a Postgres URL and pings it before returning.
//
// Pool sizing assumes short transactions: one request holds a connection
// only for the commit step of a mutation. Websocket and SSE connections do
// not hold database connections while idle.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// Connection pool tuning for a board backend:
	//
	// MaxConns (25): a mutation holds a connection for one short
	//   transaction (read snapshot, write item, append audit rows).
	//   25 covers bursts of concurrent edits while leaving room on a
	//   default max_connections of 100.
	//
	// MinConns (2): fewer warm connections than a chat backend needs.
	//   Most traffic is long-lived websocket and SSE connections, and
	//   those never hold a database connection while idle.
	//
	// MaxConnLifetime (1h) and MaxConnIdleTime (20min): recycle stale TCP
	//   connections and release Postgres slots when boards go quiet.
	//
	// HealthCheckPeriod (1min): find dead connections before a commit
	//   step does.
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 20 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	logger.Info("DB connection established",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return &DB{
		pool:   pool,
		logger: logger,
	}, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.pool.Close()
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
