package profile

import (
	"context"
	"maps"
	"sync"

	"github.com/dmitrymomot/flagkit/pkg/cache"
	"github.com/dmitrymomot/flagkit/pkg/decision"
)

var _ decision.ProfileStore = (*Memory)(nil)

// Memory keeps profiles in a bounded LRU. Whole profiles are evicted, so a
// user's records share one expiry that restarts on every save.
type Memory struct {
	mu  sync.Mutex
	lru *cache.LRU[string, map[string]string]
}

// NewMemory creates a store holding at most capacity users.
func NewMemory(capacity int, opts ...cache.Option) *Memory {
	return &Memory{lru: cache.NewLRU[string, map[string]string](capacity, opts...)}
}

// Lookup returns the stored variation id of userID in experimentID.
func (m *Memory) Lookup(_ context.Context, userID, experimentID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.lru.Get(userID)
	if !ok {
		return "", false, nil
	}
	v, ok := records[experimentID]
	return v, ok, nil
}

// Save records the variation id, refreshing the user's recency.
func (m *Memory) Save(_ context.Context, userID, experimentID, variationID string) error {
	if err := ValidateKey(userID, experimentID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records, _ := m.lru.Get(userID)
	next := make(map[string]string, len(records)+1)
	maps.Copy(next, records)
	next[experimentID] = variationID
	m.lru.Put(userID, next)
	return nil
}

// Remove forgets one experiment of userID.
func (m *Memory) Remove(_ context.Context, userID, experimentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if experimentID == "" {
		m.lru.Remove(userID)
		return nil
	}
	records, ok := m.lru.Get(userID)
	if !ok {
		return nil
	}
	if _, ok := records[experimentID]; !ok {
		return nil
	}
	next := maps.Clone(records)
	delete(next, experimentID)
	if len(next) == 0 {
		m.lru.Remove(userID)
		return nil
	}
	m.lru.Put(userID, next)
	return nil
}

// Profile returns a copy of every record stored for the user.
func (m *Memory) Profile(userID string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, _ := m.lru.Get(userID)
	return maps.Clone(records)
}

// Len returns the number of users held.
func (m *Memory) Len() int {
	return m.lru.Len()
}
