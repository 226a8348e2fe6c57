package storage

import (
	"context"
	"fmt"

	"discern/internal/model"
)

// LoadCache returns all persisted classification labels keyed by normalized
// comment text.
func (s *SQLiteStorage) LoadCache(ctx context.Context) (map[string]model.Label, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT comment_key, label FROM cache_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[string]model.Label)
	for rows.Next() {
		var key, label string
		if err := rows.Scan(&key, &label); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries[key] = model.Label(label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return entries, nil
}

// SaveCache upserts the given entries. Existing keys not present in the map
// are left untouched; the cache only grows.
func (s *SQLiteStorage) SaveCache(ctx context.Context, entries map[string]model.Label) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_entries (comment_key, label, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(comment_key) DO UPDATE SET
			label = excluded.label,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for key, label := range entries {
		if _, err := stmt.ExecContext(ctx, key, string(label)); err != nil {
			return fmt.Errorf("failed to upsert cache entry: %w", err)
		}
	}

	return tx.Commit()
}

// CacheSize returns the number of persisted cache entries.
func (s *SQLiteStorage) CacheSize(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// ClearCache removes all persisted cache entries.
func (s *SQLiteStorage) ClearCache(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
