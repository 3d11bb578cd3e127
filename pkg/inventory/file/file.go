// Package file implements a snapshot store backed by a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stockledger/pkg/inventory"
)

// Store persists snapshots to one JSON document. Saves go through a
// temporary file followed by a rename, so a crash mid-write leaves the
// previous snapshot intact and readers never see a torn file. The store
// assumes a single process instance owns the path.
type Store struct {
	path string
}

// New creates a file store at path, creating the parent directory if
// needed. The file itself is created on the first Save; until then Load
// returns an empty snapshot.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads the current snapshot. A missing file is not an error: it
// yields an empty catalog and ledger, so a fresh store behaves like one
// that has only ever seen empty saves.
func (s *Store) Load(ctx context.Context) (inventory.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return inventory.Snapshot{}, nil
	}
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	var snap inventory.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return inventory.Snapshot{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return snap, nil
}

// Save writes the snapshot atomically.
func (s *Store) Save(ctx context.Context, snap inventory.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".stockledger-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into %s: %w", s.path, err)
	}
	return nil
}
