package docstore

import (
	"context"
	"errors"
	"sync"
)

var errMemoryDown = errors.New("memory store marked unavailable")

// MemoryStore is an in-memory implementation of Store. Sets keep insertion
// order so listings are deterministic in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	hashes    map[string]map[string]string
	sets      map[string][]string
	members   map[string]map[string]struct{}
	available bool
}

// NewMemoryStore creates a new, available MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes:    make(map[string]map[string]string),
		sets:      make(map[string][]string),
		members:   make(map[string]map[string]struct{}),
		available: true,
	}
}

// SetAvailable toggles simulated outages. While unavailable every operation
// fails with ErrStoreUnavailable.
func (s *MemoryStore) SetAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = ok
}

func (s *MemoryStore) WriteFields(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return unavailable("write fields", errMemoryDown)
	}
	s.mergeLocked(key, fields)
	return nil
}

func (s *MemoryStore) ReadFields(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.available {
		return nil, unavailable("read fields", errMemoryDown)
	}
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) AddToSet(_ context.Context, setKey, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return unavailable("add to set", errMemoryDown)
	}
	s.addLocked(setKey, member)
	return nil
}

func (s *MemoryStore) ListSet(_ context.Context, setKey string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.available {
		return nil, unavailable("list set", errMemoryDown)
	}
	return append([]string(nil), s.sets[setKey]...), nil
}

func (s *MemoryStore) SetCardinality(_ context.Context, setKey string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.available {
		return 0, unavailable("set cardinality", errMemoryDown)
	}
	return int64(len(s.sets[setKey])), nil
}

func (s *MemoryStore) WriteIndexed(_ context.Context, key string, fields map[string]string, member string, setKeys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return unavailable("write indexed", errMemoryDown)
	}
	s.mergeLocked(key, fields)
	for _, setKey := range setKeys {
		s.addLocked(setKey, member)
	}
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) mergeLocked(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
}

func (s *MemoryStore) addLocked(setKey, member string) {
	m, ok := s.members[setKey]
	if !ok {
		m = make(map[string]struct{})
		s.members[setKey] = m
	}
	if _, exists := m[member]; exists {
		return
	}
	m[member] = struct{}{}
	s.sets[setKey] = append(s.sets[setKey], member)
}
