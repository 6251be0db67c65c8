package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// SeenHistory tracks which content a user has already received, so the
// story and activity agents prefer fresh material.
type SeenHistory interface {
	MarkSeen(ctx context.Context, userID, kind, contentID string) error
	Seen(ctx context.Context, userID, kind string) (map[string]bool, error)
}

// MemoryHistory is the in-process SeenHistory.
type MemoryHistory struct {
	mu   sync.RWMutex
	seen map[string]map[string]bool
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{seen: make(map[string]map[string]bool)}
}

func historyKey(userID, kind string) string {
	return fmt.Sprintf("seen:%s:%s", kind, userID)
}

// MarkSeen implements SeenHistory.
func (h *MemoryHistory) MarkSeen(_ context.Context, userID, kind, contentID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := historyKey(userID, kind)
	if h.seen[key] == nil {
		h.seen[key] = make(map[string]bool)
	}
	h.seen[key][contentID] = true
	return nil
}

// Seen implements SeenHistory.
func (h *MemoryHistory) Seen(_ context.Context, userID, kind string) (map[string]bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]bool)
	for id := range h.seen[historyKey(userID, kind)] {
		out[id] = true
	}
	return out, nil
}

// RedisHistory stores seen-content sets in Redis, one set per user and
// content kind.
type RedisHistory struct {
	client *redis.Client
}

// NewRedisHistory creates a Redis-backed history.
func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

// MarkSeen implements SeenHistory.
func (h *RedisHistory) MarkSeen(ctx context.Context, userID, kind, contentID string) error {
	if err := h.client.SAdd(ctx, historyKey(userID, kind), contentID).Err(); err != nil {
		return fmt.Errorf("recording seen content: %w", err)
	}
	return nil
}

// Seen implements SeenHistory.
func (h *RedisHistory) Seen(ctx context.Context, userID, kind string) (map[string]bool, error) {
	ids, err := h.client.SMembers(ctx, historyKey(userID, kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading seen content: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
