// Package postgres stores inventory snapshots in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/stash/internal/config"
)

// Pool is the connection pool shared by the snapshot repository and the
// server's health loop.
type Pool struct {
	db *pgxpool.Pool
}

// NewPool connects to the database named by cfg and verifies it answers.
//
// Precondition: cfg has passed config validation.
// Postcondition: returns a reachable Pool or a non-nil error; no connections
// are left open on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: NewPool: parsing dsn for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: NewPool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: NewPool: ping %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	return &Pool{db: db}, nil
}

// Snapshots returns a snapshot repository backed by the pool.
func (p *Pool) Snapshots() *SnapshotRepository {
	return NewSnapshotRepository(p.db)
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: Pool.Health: %w", err)
	}
	return nil
}

// Close releases every connection. The pool is unusable afterwards.
func (p *Pool) Close() { p.db.Close() }

// DB returns the underlying pgx pool.
func (p *Pool) DB() *pgxpool.Pool { return p.db }
