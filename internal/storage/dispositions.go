package storage

import (
	"context"
	"database/sql"
	"fmt"

	"discern/internal/model"
)

// SaveDisposition upserts one disposition keyed by order id plus tag.
// Routing the same terminal state twice lands on the same row, which is what
// makes rerouting harmless.
func (s *SQLiteStorage) SaveDisposition(ctx context.Context, d model.Disposition) error {
	if d.OrderID == "" {
		return fmt.Errorf("disposition missing order id")
	}
	if d.Tag == "" {
		return fmt.Errorf("disposition missing tag")
	}

	var cluster sql.NullInt64
	if d.Cluster != nil {
		cluster = sql.NullInt64{Int64: int64(*d.Cluster), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispositions (order_id, disposition, cluster, raw_response, comment, routed_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(order_id, disposition) DO UPDATE SET
			cluster = excluded.cluster,
			raw_response = excluded.raw_response,
			comment = excluded.comment,
			routed_at = CURRENT_TIMESTAMP`,
		d.OrderID,
		string(d.Tag),
		cluster,
		d.RawResponse,
		d.Comment,
	)
	if err != nil {
		return fmt.Errorf("failed to save disposition: %w", err)
	}
	return nil
}

// GetDispositions returns all stored dispositions ordered by order id.
func (s *SQLiteStorage) GetDispositions(ctx context.Context) ([]model.Disposition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, disposition, cluster, raw_response, comment
		FROM dispositions
		ORDER BY order_id, disposition`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispositions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dispositions []model.Disposition
	for rows.Next() {
		var d model.Disposition
		var tag string
		var cluster sql.NullInt64
		if err := rows.Scan(&d.OrderID, &tag, &cluster, &d.RawResponse, &d.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan disposition: %w", err)
		}
		d.Tag = model.DispositionTag(tag)
		if cluster.Valid {
			c := int(cluster.Int64)
			d.Cluster = &c
		}
		dispositions = append(dispositions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispositions: %w", err)
	}
	return dispositions, nil
}
