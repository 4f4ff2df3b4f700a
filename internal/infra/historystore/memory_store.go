package historystore

import (
	"context"
	"sync"

	"github.com/mealsnap/mealsnap/internal/domain/history"
)

// MemoryStore keeps history in process memory for tests/dev.
type MemoryStore struct {
	mu    sync.RWMutex
	items []history.HistoryItem
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save prepends the entry and truncates to the capacity bound.
func (s *MemoryStore) Save(_ context.Context, item history.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = history.Clamp(append([]history.HistoryItem{item}, s.items...))
	return nil
}

// List returns entries newest first.
func (s *MemoryStore) List(_ context.Context) ([]history.HistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]history.HistoryItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Clear drops every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

var _ history.Store = (*MemoryStore)(nil)
