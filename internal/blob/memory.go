package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	info Info
	data []byte
}

// MemoryStore implements Store backed by process memory. Intended for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]memoryEntry
}

// NewMemory returns an in-memory blob store.
func NewMemory() *MemoryStore {
	return &MemoryStore{objs: make(map[string]memoryEntry)}
}

// Driver returns the blob driver identifier.
func (s *MemoryStore) Driver() Driver { return DriverMemory }

// Store writes the content under its digest; re-storing is a no-op.
func (s *MemoryStore) Store(_ context.Context, r io.Reader, opts PutOptions) (Info, error) {
	b, ref, err := digest(r)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objs[ref]; ok {
		return existing.info, nil
	}
	info := Info{
		Ref:          ref,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[ref] = memoryEntry{info: info, data: b}
	return info, nil
}

// Fetch returns blob metadata and a read closer to its content.
func (s *MemoryStore) Fetch(_ context.Context, ref string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[ref]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, NotFoundError{Ref: ref}
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns blob metadata only.
func (s *MemoryStore) Stat(_ context.Context, ref string) (Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[ref]
	s.mu.RUnlock()
	if !ok {
		return Info{}, NotFoundError{Ref: ref}
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

// List returns all blobs ordered by ref ascending.
func (s *MemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.objs))
	for _, obj := range s.objs {
		info := obj.info
		info.Metadata = cloneMetadata(info.Metadata)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}
