package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when no item exists for a key.
var ErrNotFound = errors.New("item not found")

// Item is one origin record the per-worker caches front.
type Item struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetItem returns the item stored under key, or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, key string) (*Item, error) {
	var it Item
	var updatedAt string
	err := s.read.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM items WHERE key = ?`, key,
	).Scan(&it.Key, &it.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	it.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &it, nil
}

// UpsertItem inserts or replaces the item stored under key.
func (s *Store) UpsertItem(ctx context.Context, key, value string) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO items (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
