package historystore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mealsnap/mealsnap/internal/domain/history"
)

// FileStore persists the history as a single JSON-encoded array in one file,
// the moral equivalent of the browser's string-keyed storage slot. The file
// name doubles as the format version.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore constructs a store rooted at the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save prepends the entry, truncates to the capacity bound and rewrites the
// slot atomically.
func (s *FileStore) Save(_ context.Context, item history.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		// A corrupt slot is overwritten rather than kept broken.
		items = nil
	}
	items = history.Clamp(append([]history.HistoryItem{item}, items...))
	return s.write(items)
}

// List returns entries newest first. A missing slot is an empty history.
func (s *FileStore) List(_ context.Context) ([]history.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Clear removes the slot entirely.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) load() ([]history.HistoryItem, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []history.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *FileStore) write(items []history.HistoryItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

var _ history.Store = (*FileStore)(nil)
