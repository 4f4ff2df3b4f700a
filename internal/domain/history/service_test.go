package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mealsnap/mealsnap/internal/domain/analysis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAnalysis(name string) analysis.FoodAnalysis {
	return analysis.FoodAnalysis{
		FoodName:    name,
		Calories:    100,
		GILevel:     analysis.LevelLow,
		PurineLevel: analysis.LevelLow,
	}
}

func TestServiceSaveAssignsTimestampID(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, testLogger())
	at := time.UnixMilli(1700000000000).UTC()
	svc.now = func() time.Time { return at }

	item := svc.Save(context.Background(), testAnalysis("清蒸鱼"), "img")
	require.True(t, strings.HasPrefix(item.ID, "1700000000000-"))
	require.Equal(t, at, item.Timestamp)
	require.Len(t, store.saved, 1)
	require.Equal(t, item, store.saved[0])
}

func TestServiceSaveIDsDistinctWithinMillisecond(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, testLogger())
	at := time.UnixMilli(1700000000000).UTC()
	svc.now = func() time.Time { return at }

	first := svc.Save(context.Background(), testAnalysis("清蒸鱼"), "img-1")
	second := svc.Save(context.Background(), testAnalysis("炒青菜"), "img-2")
	require.NotEqual(t, first.ID, second.ID)

	// Both entries stay individually addressable.
	store.items = store.saved
	found, ok := svc.Find(context.Background(), first.ID)
	require.True(t, ok)
	require.Equal(t, "清蒸鱼", found.Analysis.FoodName)
	found, ok = svc.Find(context.Background(), second.ID)
	require.True(t, ok)
	require.Equal(t, "炒青菜", found.Analysis.FoodName)
}

func TestServiceSaveSwallowsStoreFailure(t *testing.T) {
	store := &stubStore{saveErr: errors.New("disk full")}
	svc := NewService(store, testLogger())

	item := svc.Save(context.Background(), testAnalysis("炒面"), "img")
	require.NotEmpty(t, item.ID)
}

func TestServiceListEmptyOnFailure(t *testing.T) {
	store := &stubStore{listErr: errors.New("corrupt")}
	svc := NewService(store, testLogger())

	items := svc.List(context.Background())
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestServiceListNeverNil(t *testing.T) {
	svc := NewService(&stubStore{}, testLogger())
	require.NotNil(t, svc.List(context.Background()))
}

func TestServiceFind(t *testing.T) {
	store := &stubStore{items: []HistoryItem{
		{ID: "2", Analysis: testAnalysis("汤")},
		{ID: "1", Analysis: testAnalysis("饭")},
	}}
	svc := NewService(store, testLogger())

	item, ok := svc.Find(context.Background(), "1")
	require.True(t, ok)
	require.Equal(t, "饭", item.Analysis.FoodName)

	_, ok = svc.Find(context.Background(), "3")
	require.False(t, ok)
}

func TestServiceClearSwallowsFailure(t *testing.T) {
	store := &stubStore{clearErr: errors.New("locked")}
	svc := NewService(store, testLogger())
	svc.Clear(context.Background())
	require.Equal(t, 1, store.clears)
}

func TestClamp(t *testing.T) {
	items := make([]HistoryItem, MaxEntries+5)
	require.Len(t, Clamp(items), MaxEntries)

	short := make([]HistoryItem, 3)
	require.Len(t, Clamp(short), 3)
}

type stubStore struct {
	items    []HistoryItem
	saved    []HistoryItem
	saveErr  error
	listErr  error
	clearErr error
	clears   int
}

func (s *stubStore) Save(_ context.Context, item HistoryItem) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, item)
	return nil
}

func (s *stubStore) List(context.Context) ([]HistoryItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func (s *stubStore) Clear(context.Context) error {
	s.clears++
	return s.clearErr
}
