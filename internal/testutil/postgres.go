// Package testutil provides shared test fixtures: a small item catalog and
// PostgreSQL containers for storage integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/stash/internal/config"
	"github.com/cory-johannsen/stash/internal/storage/postgres"
)

// snapshotSchema mirrors migrations/000001_inventory_snapshots.up.sql.
const snapshotSchema = `
	CREATE TABLE IF NOT EXISTS inventory_snapshots (
		name       VARCHAR(128) PRIMARY KEY,
		state      JSONB        NOT NULL,
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "stash",
			"POSTGRES_PASSWORD": "stash",
			"POSTGRES_DB":       "stash_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "stash",
		Password:        "stash",
		Name:            "stash_test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}
	t.Logf("postgres container started [%s]", time.Since(start))

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})

	return &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}
}

// ApplyMigrations creates the snapshot schema directly, without the migrate
// tool.
//
// Precondition: Pool must be connected.
// Postcondition: The inventory_snapshots table exists.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	applySchema(t, pc.RawPool)
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return pc.Config.DSN()
}

// NewPool returns a migrated pool for integration tests. TEST_DSN selects an
// existing database; otherwise a container is started. The test is skipped
// under -short when TEST_DSN is unset.
//
// Postcondition: The pool is closed when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if dsn := os.Getenv("TEST_DSN"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			t.Fatalf("connecting to test DB: %v", err)
		}
		t.Cleanup(pool.Close)
		applySchema(t, pool)
		return pool
	}
	if testing.Short() {
		t.Skip("TEST_DSN not set and -short given; skipping integration test")
	}
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.RawPool
}

// UniqueName returns a snapshot name unlikely to collide across test runs
// sharing one database.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	start := time.Now()
	if _, err := pool.Exec(context.Background(), snapshotSchema); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}
