package memory

import (
	"encoding/json"

	"herbledger/pkg/domain"
)

// RecordSnapshot captures one record's committed value and full history.
type RecordSnapshot struct {
	Current json.RawMessage       `json:"current"`
	History []domain.HistoryEntry `json:"history"`
	Seq     int                   `json:"seq"`
}

// Snapshot captures a point-in-time clone of the store state. Durable
// backends serialize it after every successful commit and replay it on open.
type Snapshot struct {
	Records map[string]RecordSnapshot `json:"records"`
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{Records: make(map[string]RecordSnapshot, len(s.records))}
	for key, rec := range s.records {
		if rec.current == nil && len(rec.history) == 0 {
			continue
		}
		history := make([]domain.HistoryEntry, len(rec.history))
		for i, entry := range rec.history {
			entry.Value = cloneRaw(entry.Value)
			history[i] = entry
		}
		out.Records[key] = RecordSnapshot{
			Current: cloneRaw(rec.current),
			History: history,
			Seq:     rec.seq,
		}
	}
	return out
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*record, len(snapshot.Records))
	for key, rs := range snapshot.Records {
		history := make([]domain.HistoryEntry, len(rs.History))
		for i, entry := range rs.History {
			entry.Value = cloneRaw(entry.Value)
			history[i] = entry
		}
		seq := rs.Seq
		if seq < len(history) {
			seq = len(history)
		}
		s.records[key] = &record{
			current: cloneRaw(rs.Current),
			history: history,
			seq:     seq,
		}
	}
}
