// Package sqlite provides a durable record store that snapshots the
// in-memory state to a single SQLite table after every successful write.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"herbledger/internal/infra/recordstore/memory"
	"herbledger/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.RecordStore = (*Store)(nil)

const recordsBucket = "records"

// Store persists the in-memory record state to SQLite as a JSON blob.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed record store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "herbledger.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, recordsBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snapshot memory.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.Store.ImportState(snapshot)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.Store.ExportState())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO state (bucket, payload) VALUES (?, ?)
		 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		recordsBucket, payload,
	); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Put stores value under key and snapshots to disk.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage) (domain.Version, error) {
	return s.Update(ctx, key, func(json.RawMessage) (json.RawMessage, error) {
		return value, nil
	})
}

// Update applies fn via the in-memory store, then snapshots to disk.
func (s *Store) Update(ctx context.Context, key string, fn func(current json.RawMessage) (json.RawMessage, error)) (domain.Version, error) {
	version, err := s.Store.Update(ctx, key, fn)
	if err != nil {
		return version, err
	}
	if err := s.persist(); err != nil {
		return version, err
	}
	return version, nil
}

// Close flushes nothing (writes are synchronous) and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}
