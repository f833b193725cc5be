// Package file stores inventory snapshots as YAML documents on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/storage"
)

const ext = ".yaml"

// SnapshotStore keeps one YAML file per snapshot in a directory.
type SnapshotStore struct {
	dir    string
	logger *zap.Logger
}

// NewSnapshotStore creates a SnapshotStore rooted at dir, creating the
// directory if needed.
//
// Precondition: dir must be non-empty; logger must be non-nil.
// Postcondition: Returns a usable store or a non-nil error.
func NewSnapshotStore(dir string, logger *zap.Logger) (*SnapshotStore, error) {
	if dir == "" {
		return nil, errors.New("file: NewSnapshotStore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: NewSnapshotStore: %w", err)
	}
	return &SnapshotStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store writes to.
func (s *SnapshotStore) Dir() string { return s.dir }

func (s *SnapshotStore) path(name string) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Save writes st to <dir>/<name>.yaml. The file is replaced atomically so a
// crash mid-write never leaves a truncated snapshot.
func (s *SnapshotStore) Save(ctx context.Context, name string, st *inventory.State) error {
	path, err := s.path(name)
	if err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: %w", err)
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: encoding %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file: SnapshotStore.Save: writing %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file: SnapshotStore.Save: syncing %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file: SnapshotStore.Save: %w", err)
	}

	s.logger.Debug("snapshot written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Load reads the snapshot stored under name.
//
// Postcondition: returns an error wrapping storage.ErrSnapshotNotFound when
// the file does not exist.
func (s *SnapshotStore) Load(ctx context.Context, name string) (*inventory.State, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, fmt.Errorf("file: SnapshotStore.Load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("file: SnapshotStore.Load: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file: SnapshotStore.Load: %q: %w", name, storage.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file: SnapshotStore.Load: %w", err)
	}
	var st inventory.State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("file: SnapshotStore.Load: decoding %s: %w", path, err)
	}
	return &st, nil
}

// Exists reports whether a snapshot is stored under name.
func (s *SnapshotStore) Exists(name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, fmt.Errorf("file: SnapshotStore.Exists: %w", err)
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file: SnapshotStore.Exists: %w", err)
	}
	return true, nil
}

// Delete removes the snapshot stored under name.
//
// Postcondition: returns an error wrapping storage.ErrSnapshotNotFound when
// nothing is stored under name.
func (s *SnapshotStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return fmt.Errorf("file: SnapshotStore.Delete: %w", err)
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file: SnapshotStore.Delete: %q: %w", name, storage.ErrSnapshotNotFound)
	}
	if err != nil {
		return fmt.Errorf("file: SnapshotStore.Delete: %w", err)
	}
	return nil
}

// List returns the stored snapshot names, sorted.
func (s *SnapshotStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file: SnapshotStore.List: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, ext))
	}
	sort.Strings(names)
	return names, nil
}
