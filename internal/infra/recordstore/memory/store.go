// Package memory provides an in-memory implementation of the versioned
// record store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"herbledger/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.RecordStore = (*Store)(nil)

type record struct {
	// mu serializes writers on this key. Readers rely on the store lock:
	// current/history are only reassigned while the store lock is held
	// exclusively, so a read lock suffices to observe a committed value.
	mu      sync.Mutex
	current json.RawMessage
	history []domain.HistoryEntry
	seq     int
}

// Store provides an in-memory record store with per-key version history.
// Writes on the same key are serialized by a per-record mutex; writes on
// distinct keys proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	nowFn   func() time.Time
}

// NewStore constructs an empty in-memory record store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*record),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the time provider. Intended for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// NowFunc returns the time provider used when stamping history entries.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

func newTxID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return cp
}

func (s *Store) holder(key string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = &record{}
		s.records[key] = rec
	}
	return rec
}

// Put stores value under key, appending a history entry.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage) (domain.Version, error) {
	return s.Update(ctx, key, func(json.RawMessage) (json.RawMessage, error) {
		return value, nil
	})
}

// Update runs fn under the key's write lock and commits its result. fn sees
// nil when the key has no committed value yet.
func (s *Store) Update(_ context.Context, key string, fn func(current json.RawMessage) (json.RawMessage, error)) (domain.Version, error) {
	if key == "" {
		return domain.Version{}, domain.ValidationError{Field: "key", Reason: "must not be empty"}
	}
	rec := s.holder(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next, err := fn(cloneRaw(rec.current))
	if err != nil {
		return domain.Version{}, err
	}
	if next == nil {
		return domain.Version{}, fmt.Errorf("update %s: nil value", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.seq++
	version := domain.Version{
		TxID:      newTxID(),
		Seq:       rec.seq,
		Committed: s.nowFn(),
	}
	rec.current = cloneRaw(next)
	rec.history = append(rec.history, domain.HistoryEntry{
		TxID:      version.TxID,
		Timestamp: version.Committed,
		Value:     cloneRaw(next),
	})
	return version, nil
}

// Get returns the latest committed value for key.
func (s *Store) Get(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || rec.current == nil {
		return nil, domain.NotFoundError{Entity: "record", ID: key}
	}
	return cloneRaw(rec.current), nil
}

// Exists reports whether key holds a committed value.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return ok && rec.current != nil, nil
}

// History returns the full version history for key, oldest first.
func (s *Store) History(_ context.Context, key string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || len(rec.history) == 0 {
		return nil, domain.NotFoundError{Entity: "record", ID: key}
	}
	out := make([]domain.HistoryEntry, len(rec.history))
	for i, entry := range rec.history {
		entry.Value = cloneRaw(entry.Value)
		out[i] = entry
	}
	return out, nil
}

// View invokes fn once per committed record over a consistent snapshot.
func (s *Store) View(_ context.Context, fn func(key string, value json.RawMessage) error) error {
	s.mu.RLock()
	snapshot := make(map[string]json.RawMessage, len(s.records))
	for key, rec := range s.records {
		if rec.current == nil {
			continue
		}
		snapshot[key] = cloneRaw(rec.current)
	}
	s.mu.RUnlock()

	for key, value := range snapshot {
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}
