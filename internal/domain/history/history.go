package history

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mealsnap/mealsnap/internal/domain/analysis"
)

// MaxEntries caps the history cache; older entries are silently evicted.
const MaxEntries = 20

// HistoryItem is one durably cached analysis result with its source image.
// Items are created on successful analysis and never mutated.
type HistoryItem struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Analysis  analysis.FoodAnalysis `json:"analysis"`
	ImageSrc  string                `json:"imageSrc"`
}

// NewItem builds an entry whose id leads with the creation instant. The
// random suffix keeps two saves within the same millisecond distinct.
func NewItem(a analysis.FoodAnalysis, imageSrc string, at time.Time) HistoryItem {
	return HistoryItem{
		ID:        strconv.FormatInt(at.UnixMilli(), 10) + "-" + uuid.NewString()[:8],
		Timestamp: at,
		Analysis:  a,
		ImageSrc:  imageSrc,
	}
}

// Store persists history items. Every implementation prepends on save,
// truncates to MaxEntries and lists newest first.
type Store interface {
	Save(ctx context.Context, item HistoryItem) error
	List(ctx context.Context) ([]HistoryItem, error)
	Clear(ctx context.Context) error
}

// Clamp enforces the capacity bound over a newest-first slice. Shared by the
// store implementations.
func Clamp(items []HistoryItem) []HistoryItem {
	if len(items) > MaxEntries {
		return items[:MaxEntries]
	}
	return items
}
