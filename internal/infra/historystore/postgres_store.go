package historystore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealsnap/mealsnap/internal/domain/history"
)

// PostgresStore persists history entries in a table, trimmed to the same
// capacity bound as the slot backends.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing table when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS history_items (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			analysis JSONB NOT NULL,
			image_src TEXT NOT NULL
		)
	`)
	return err
}

// Save inserts the entry and evicts rows beyond the capacity bound.
func (s *PostgresStore) Save(ctx context.Context, item history.HistoryItem) error {
	payload, err := json.Marshal(item.Analysis)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO history_items (id, created_at, analysis, image_src)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Timestamp, payload, item.ImageSrc); err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		DELETE FROM history_items
		WHERE id NOT IN (
			SELECT id FROM history_items ORDER BY created_at DESC LIMIT $1
		)
	`, history.MaxEntries)
	return err
}

// List returns entries newest first, bounded by the capacity.
func (s *PostgresStore) List(ctx context.Context) ([]history.HistoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, analysis, image_src
		FROM history_items
		ORDER BY created_at DESC
		LIMIT $1
	`, history.MaxEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []history.HistoryItem
	for rows.Next() {
		var (
			item    history.HistoryItem
			payload []byte
		)
		if err := rows.Scan(&item.ID, &item.Timestamp, &payload, &item.ImageSrc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &item.Analysis); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Clear drops every entry.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM history_items`)
	return err
}

var _ history.Store = (*PostgresStore)(nil)
