package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically removes idle sessions from backends without native
// expiry.
type Sweeper struct {
	backend    Backend
	idleExpiry time.Duration
	logger     *zap.Logger
	cron       *cron.Cron
}

// NewSweeper creates a sweeper. spec is a cron expression (descriptors
// like "@every 5m" work too).
func NewSweeper(backend Backend, spec string, idleExpiry time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		backend:    backend,
		idleExpiry: idleExpiry,
		logger:     logger,
		cron:       cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the schedule.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-s.idleExpiry)
	removed, err := s.backend.DeleteIdle(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("swept idle sessions", zap.Int("removed", removed))
	}
}
