package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager wraps a Backend with per-session write serialization: two turns
// racing on the same session apply their updates one after the other, so
// a read-modify-write never loses an exchange. Different sessions never
// contend.
type Manager struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager over the backend.
func NewManager(backend Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// GetOrCreate returns the existing session or creates one. An empty
// sessionID gets a fresh UUID.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, userID string, ageGroup int) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.backend.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		s = New(sessionID, userID, ageGroup)
		if err := m.backend.Put(ctx, s); err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		m.logger.Debug("created session", zap.String("session_id", sessionID))
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	// A turn may arrive with a newer age than the stored one.
	if ageGroup > 0 && s.AgeGroup != ageGroup {
		s.AgeGroup = ageGroup
	}
	return s, nil
}

// Update applies fn to the session under its write lock and stores the
// result.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*Session)) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.backend.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	fn(s)
	if err := m.backend.Put(ctx, s); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// RecordExchange appends a question/answer pair to the session.
func (m *Manager) RecordExchange(ctx context.Context, sessionID, question, answer, activeIntent string) error {
	return m.Update(ctx, sessionID, func(s *Session) {
		s.RecordExchange(question, answer, activeIntent)
	})
}

// Delete removes a session and its lock.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	if err := m.backend.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()
	return nil
}

// Backend exposes the underlying store, for the sweeper.
func (m *Manager) Backend() Backend { return m.backend }
