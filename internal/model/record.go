// Package model defines the core domain models used throughout the application.
package model

import "time"

// Status tracks where a discrepancy record sits in the resolution pipeline.
type Status string

// Record status constants.
const (
	StatusUnclassified         Status = "UNCLASSIFIED"
	StatusResolved             Status = "RESOLVED"
	StatusUnresolved           Status = "UNRESOLVED"
	StatusNeedsReview          Status = "NEEDS_REVIEW"
	StatusClassificationFailed Status = "CLASSIFICATION_FAILED"
)

// DiscrepancyRecord represents a financial transaction flagged as unmatched
// between two systems, carrying a human resolution comment. Records are
// created by the ingestion layer and only ever re-emitted with an updated
// status; they are never deleted.
type DiscrepancyRecord struct {
	Date    time.Time
	OrderID string
	Comment string
	Status  Status
	Amount  float64
}
