// Package session tracks per-conversation state: the child's age group,
// the active intent for follow-ups, and a short window of recent turns.
// Sessions are conversation scaffolding, not long-term storage.
package session

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// maxMessages bounds the per-session message window. Older messages fall
// off; follow-up handling only ever needs the recent exchange.
const maxMessages = 10

// Message is one recorded turn side. Messages are value types and never
// mutated after being appended.
type Message struct {
	Role      string    `json:"role"` // "child" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the conversation state for one child.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AgeGroup     int       `json:"age_group"`
	ActiveIntent string    `json:"active_intent,omitempty"`
	LastQuestion string    `json:"last_question,omitempty"`
	LastAnswer   string    `json:"last_answer,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
	Turns        int       `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New creates a session.
func New(id, userID string, ageGroup int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		UserID:    userID,
		AgeGroup:  ageGroup,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordExchange appends one question/answer pair and updates the
// follow-up state. The message window is trimmed from the front.
func (s *Session) RecordExchange(question, answer, activeIntent string) {
	now := time.Now().UTC()
	s.Messages = append(s.Messages,
		Message{Role: "child", Content: question, Timestamp: now},
		Message{Role: "assistant", Content: answer, Timestamp: now},
	)
	if len(s.Messages) > maxMessages {
		s.Messages = s.Messages[len(s.Messages)-maxMessages:]
	}
	s.LastQuestion = question
	s.LastAnswer = answer
	s.ActiveIntent = activeIntent
	s.Turns++
	s.UpdatedAt = now
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
