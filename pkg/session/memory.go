package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is the in-process session store.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*Session)}
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, id string) (*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Put implements Backend.
func (b *MemoryBackend) Put(_ context.Context, s *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[s.ID] = s.Clone()
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
	return nil
}

// DeleteIdle implements Backend.
func (b *MemoryBackend) DeleteIdle(_ context.Context, cutoff time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var removed int
	for id, s := range b.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(b.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }

// Len returns the number of stored sessions.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}
