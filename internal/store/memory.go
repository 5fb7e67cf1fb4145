package store

import (
	"context"
	"sync"

	"chat-relay/internal/domain"
)

// MemoryStore keeps state for the lifetime of the process.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]string
	profiles      map[string]domain.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]string),
		profiles:      make(map[string]domain.Profile),
	}
}

func (m *MemoryStore) GetConversationID(_ context.Context, userID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.conversations[userID]
	return id, ok, nil
}

func (m *MemoryStore) SetConversationID(_ context.Context, userID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[userID] = conversationID
	return nil
}

// GetProfile returns a copy so callers cannot mutate stored state.
func (m *MemoryStore) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[userID].Clone(), nil
}

func (m *MemoryStore) MergeProfile(_ context.Context, userID string, partial domain.Profile) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := m.profiles[userID].Merge(partial)
	m.profiles[userID] = merged
	return merged.Clone(), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
