package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/storage"
)

// ErrSnapshotNotFound is returned when no snapshot row exists for a name.
var ErrSnapshotNotFound = fmt.Errorf("postgres: %w", storage.ErrSnapshotNotFound)

// SnapshotInfo describes a stored snapshot without its contents.
type SnapshotInfo struct {
	Name      string
	UpdatedAt time.Time
}

// SnapshotRepository persists inventory snapshots as JSONB rows in the
// inventory_snapshots table.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save upserts st under name.
//
// Precondition: name must pass storage.ValidateName.
// Postcondition: the row's updated_at is set to the current time.
func (r *SnapshotRepository) Save(ctx context.Context, name string, st *inventory.State) error {
	if err := storage.ValidateName(name); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding snapshot %q: %w", name, err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO inventory_snapshots (name, state, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (name) DO UPDATE
		 SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot %q: %w", name, err)
	}
	return nil
}

// Load returns the snapshot stored under name.
//
// Postcondition: returns ErrSnapshotNotFound if no row exists.
func (r *SnapshotRepository) Load(ctx context.Context, name string) (*inventory.State, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT state FROM inventory_snapshots WHERE name = $1`,
		name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot %q: %w", name, err)
	}
	var st inventory.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", name, err)
	}
	return &st, nil
}

// Delete removes the snapshot stored under name.
//
// Postcondition: returns ErrSnapshotNotFound if no row exists.
func (r *SnapshotRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM inventory_snapshots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// List returns every stored snapshot ordered by name.
func (r *SnapshotRepository) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, updated_at FROM inventory_snapshots ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Name, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return out, nil
}
