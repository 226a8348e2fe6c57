package storage

import (
	"context"
	"fmt"

	"discern/internal/model"
)

// SaveClusterAssignments replaces the stored assignments with the given
// set. Clustering is recomputed from scratch each run, so stale rows from a
// previous run must not survive.
func (s *SQLiteStorage) SaveClusterAssignments(ctx context.Context, assignments []model.ClusterAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cluster_assignments"); err != nil {
		return fmt.Errorf("failed to clear cluster assignments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cluster_assignments (order_id, cluster, distance)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, a.OrderID, a.Cluster, a.Distance); err != nil {
			return fmt.Errorf("failed to insert assignment for %s: %w", a.OrderID, err)
		}
	}

	return tx.Commit()
}

// SavePatterns replaces the stored patterns with the given set.
func (s *SQLiteStorage) SavePatterns(ctx context.Context, patterns []model.Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM patterns"); err != nil {
		return fmt.Errorf("failed to clear patterns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patterns (cluster, exemplar, exemplar_order_id, size)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pattern insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range patterns {
		if _, err := stmt.ExecContext(ctx, p.Cluster, p.Exemplar, p.ExemplarOrderID, p.Size); err != nil {
			return fmt.Errorf("failed to insert pattern %d: %w", p.Cluster, err)
		}
	}

	return tx.Commit()
}

// GetPatterns returns the stored patterns ordered by cluster id.
func (s *SQLiteStorage) GetPatterns(ctx context.Context) ([]model.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster, exemplar, exemplar_order_id, size
		FROM patterns
		ORDER BY cluster`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.Pattern
	for rows.Next() {
		var p model.Pattern
		if err := rows.Scan(&p.Cluster, &p.Exemplar, &p.ExemplarOrderID, &p.Size); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}
	return patterns, nil
}
