// Package intent classifies a user message into one of a closed set of
// intents. Classification is layered: cheap ordered pattern rules first,
// then a small model as fallback for anything the rules cannot place.
package intent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentActivity Intent = "activity"
	IntentStory    Intent = "story"
	IntentWhy      Intent = "why"
	IntentGreeting Intent = "greeting"
	IntentUnknown  Intent = "unknown"
)

// ParseIntent maps a label to an Intent, defaulting to unknown.
func ParseIntent(label string) Intent {
	switch Intent(label) {
	case IntentActivity, IntentStory, IntentWhy, IntentGreeting:
		return Intent(label)
	}
	return IntentUnknown
}

// Detection methods.
const (
	MethodRule    = "rule"
	MethodModel   = "model"
	MethodSession = "session"
	MethodNone    = "none"
)

// Classification is the outcome of routing one message.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Params     Params  `json:"params"`
}

// Record is the audit entry written for every classification.
type Record struct {
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id"`
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	RawInput   string    `json:"raw_input"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives classification audit records. Sink failures are logged and
// never fail the turn.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// MemorySink buffers records in memory. Used in tests and as the default
// when no analytics store is wired. Safe for concurrent turns.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// Record implements Sink
func (s *MemorySink) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// All returns a copy of the buffered records.
func (s *MemorySink) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// LogSink writes audit records to a structured log. Safe for concurrent
// turns.
type LogSink struct {
	Logger *zap.Logger
}

// Record implements Sink
func (s *LogSink) Record(_ context.Context, rec Record) error {
	s.Logger.Info("intent classified",
		zap.String("message_id", rec.MessageID),
		zap.String("user_id", rec.UserID),
		zap.String("intent", string(rec.Intent)),
		zap.Float64("confidence", rec.Confidence),
		zap.String("method", rec.Method),
	)
	return nil
}
