package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It keeps every saved state so tests can
// inspect the sequence of checkpoints a job produced.
type MemoryStore struct {
	mu      sync.Mutex
	current *Checkpoint
	raw     []byte
	saves   []Checkpoint
	clears  int

	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith seeds the store with an existing checkpoint.
func NewMemoryStoreWith(cp Checkpoint) *MemoryStore {
	c := cp.Clone()
	return &MemoryStore{current: &c}
}

// NewMemoryStoreRaw seeds the store with stored bytes, as if read from disk.
func NewMemoryStoreRaw(data []byte) *MemoryStore {
	return &MemoryStore{raw: append([]byte(nil), data...)}
}

func (s *MemoryStore) Load(_ context.Context) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw != nil {
		return resetOnCorrupt(s.raw, "memory"), nil
	}
	if s.current == nil {
		return Fresh(), nil
	}
	return s.current.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	c := cp.Clone()
	s.current = &c
	s.raw = nil
	s.saves = append(s.saves, cp.Clone())
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.raw = nil
	s.clears++
	return nil
}

// Exists reports whether a checkpoint is currently stored.
func (s *MemoryStore) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil || s.raw != nil
}

// Saves returns copies of every checkpoint saved so far, oldest first.
func (s *MemoryStore) Saves() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Checkpoint, 0, len(s.saves))
	for _, cp := range s.saves {
		ret = append(ret, cp.Clone())
	}
	return ret
}

// Clears returns how many times Clear was called.
func (s *MemoryStore) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}
