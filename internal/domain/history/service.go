package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/mealsnap/mealsnap/internal/domain/analysis"
	"github.com/mealsnap/mealsnap/pkg/util"
)

// Service wraps a Store with the lossy-cache semantics the app relies on:
// persistence failures never propagate, they only cost durability.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the history domain.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "history.service"),
		now:    util.NowUTC,
	}
}

// Save records a successful analysis. Failures are swallowed with a warn
// log; the in-memory session continues unaffected.
func (s *Service) Save(ctx context.Context, a analysis.FoodAnalysis, imageSrc string) HistoryItem {
	item := NewItem(a, imageSrc, s.now())
	if err := s.store.Save(ctx, item); err != nil {
		s.logger.Warn("history save failed, entry not recorded", "id", item.ID, "error", err)
	}
	return item
}

// List returns past results, newest first. A corrupt or unreadable store
// yields an empty sequence rather than an error.
func (s *Service) List(ctx context.Context) []HistoryItem {
	items, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("history list failed, returning empty", "error", err)
		return []HistoryItem{}
	}
	if items == nil {
		items = []HistoryItem{}
	}
	return items
}

// Find returns the entry with the given id, if still cached.
func (s *Service) Find(ctx context.Context, id string) (HistoryItem, bool) {
	for _, item := range s.List(ctx) {
		if item.ID == id {
			return item, true
		}
	}
	return HistoryItem{}, false
}

// Clear drops every entry. Idempotent; failures are swallowed.
func (s *Service) Clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("history clear failed", "error", err)
	}
}
