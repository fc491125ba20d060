package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Version identifies one committed write to a record.
type Version struct {
	TxID      string    `json:"tx_id"`
	Seq       int       `json:"seq"`
	Committed time.Time `json:"committed"`
}

// HistoryEntry is one replayable snapshot from a record's version history,
// carrying the exact value that became current at that transaction.
type HistoryEntry struct {
	TxID      string          `json:"tx_id"`
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

// RecordStore is a key-addressed document store with per-key version
// history. Writes to the same key are serialized; distinct keys are fully
// independent. History is append-only and never pruned.
type RecordStore interface {
	// Put stores value under key, appending a history entry. Existing keys
	// are overwritten; use Update when the new value depends on the old.
	Put(ctx context.Context, key string, value json.RawMessage) (Version, error)
	// Update runs fn while holding the key's write lock. fn receives the
	// current value (nil when the key is absent) and returns the value to
	// commit. An error from fn aborts the write with no state change.
	Update(ctx context.Context, key string, fn func(current json.RawMessage) (json.RawMessage, error)) (Version, error)
	// Get returns the latest committed value or a NotFoundError.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Exists reports whether key holds a committed value.
	Exists(ctx context.Context, key string) (bool, error)
	// History returns the full version history for key, oldest first.
	// Unknown keys yield a NotFoundError.
	History(ctx context.Context, key string) ([]HistoryEntry, error)
	// View invokes fn once per committed record over a consistent snapshot.
	// Iteration order is unspecified; fn errors abort the scan.
	View(ctx context.Context, fn func(key string, value json.RawMessage) error) error
}
