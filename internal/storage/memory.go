package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps a deep copy of the last saved snapshot.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the last saved snapshot, or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, ErrNotFound
	}
	return clone(*s.snap), nil
}

// Save replaces the held snapshot with a copy of snap.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	c := clone(snap)
	s.mu.Lock()
	s.snap = &c
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func clone(snap Snapshot) Snapshot {
	out := snap
	out.Board = make([][]string, len(snap.Board))
	for i, row := range snap.Board {
		out.Board[i] = append([]string(nil), row...)
	}
	out.Chat = append(out.Chat[:0:0], snap.Chat...)
	return out
}
