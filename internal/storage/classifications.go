package storage

import (
	"context"
	"database/sql"
	"fmt"

	"discern/internal/model"
)

// SaveClassification upserts one classification result keyed by order id. A
// rerun overwrites the previous run's outcome for the same order.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, result *model.ClassificationResult) error {
	if result == nil {
		return fmt.Errorf("classification result cannot be nil")
	}
	if result.OrderID == "" {
		return fmt.Errorf("classification result missing order id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classifications (order_id, label, status, source, raw_response, attempts, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			label = excluded.label,
			status = excluded.status,
			source = excluded.source,
			raw_response = excluded.raw_response,
			attempts = excluded.attempts,
			classified_at = excluded.classified_at`,
		result.OrderID,
		string(result.Label),
		string(result.Status),
		string(result.Source),
		result.RawResponse,
		result.Attempts,
		result.ClassifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	return nil
}

// GetClassifications returns all stored classification results ordered by
// order id.
func (s *SQLiteStorage) GetClassifications(ctx context.Context) ([]model.ClassificationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, label, status, source, raw_response, attempts, classified_at
		FROM classifications
		ORDER BY order_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.ClassificationResult
	for rows.Next() {
		var r model.ClassificationResult
		var label, status, source sql.NullString
		if err := rows.Scan(&r.OrderID, &label, &status, &source, &r.RawResponse, &r.Attempts, &r.ClassifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		r.Label = model.Label(label.String)
		r.Status = model.Status(status.String)
		r.Source = model.Source(source.String)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classifications: %w", err)
	}
	return results, nil
}
