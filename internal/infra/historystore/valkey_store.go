package historystore

import (
	"context"
	"encoding/json"

	"github.com/valkey-io/valkey-go"

	"github.com/mealsnap/mealsnap/internal/domain/history"
)

const defaultSlotKey = "mealsnap:history:v1"

// ValkeyStore keeps the history slot in a Valkey-compatible database, useful
// when several app instances must share one cache.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

// NewValkeyStore constructs a store over an established client.
func NewValkeyStore(client valkey.Client, key string) *ValkeyStore {
	if key == "" {
		key = defaultSlotKey
	}
	return &ValkeyStore{client: client, key: key}
}

// Save prepends the entry and rewrites the slot.
func (s *ValkeyStore) Save(ctx context.Context, item history.HistoryItem) error {
	items, err := s.load(ctx)
	if err != nil {
		items = nil
	}
	items = history.Clamp(append([]history.HistoryItem{item}, items...))
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.key).Value(string(payload)).Build()
	return s.client.Do(ctx, cmd).Error()
}

// List returns entries newest first.
func (s *ValkeyStore) List(ctx context.Context) ([]history.HistoryItem, error) {
	return s.load(ctx)
}

// Clear deletes the slot.
func (s *ValkeyStore) Clear(ctx context.Context) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(s.key).Build()).Error()
	if err != nil && valkey.IsValkeyNil(err) {
		return nil
	}
	return err
}

func (s *ValkeyStore) load(ctx context.Context) ([]history.HistoryItem, error) {
	cmd := s.client.B().Get().Key(s.key).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var items []history.HistoryItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, err
	}
	return items, nil
}

var _ history.Store = (*ValkeyStore)(nil)
