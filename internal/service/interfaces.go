// Package service defines the interfaces between the engine and its
// collaborators, plus shared option types. Components accept these
// interfaces and return concrete structs.
package service

import (
	"context"
	"time"

	"discern/internal/model"
)

// RetryOptions configures exponential backoff behavior for transient
// failures of outbound calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DispositionSink consumes the stream of terminal dispositions produced by
// the action router. Implementations are expected to key on order id plus
// disposition tag so that re-routing the same terminal state is harmless.
type DispositionSink interface {
	SaveDisposition(ctx context.Context, d model.Disposition) error
}

// CacheStore persists validated classification labels across runs, keyed by
// normalized comment text. The engine reads it once at startup and writes it
// once at shutdown; an unreachable store must not fail a batch.
type CacheStore interface {
	LoadCache(ctx context.Context) (map[string]model.Label, error)
	SaveCache(ctx context.Context, entries map[string]model.Label) error
}

// Storage is the full persistence contract implemented by the SQLite layer.
type Storage interface {
	DispositionSink
	CacheStore

	SaveClassification(ctx context.Context, result *model.ClassificationResult) error
	GetClassifications(ctx context.Context) ([]model.ClassificationResult, error)

	SaveClusterAssignments(ctx context.Context, assignments []model.ClusterAssignment) error
	SavePatterns(ctx context.Context, patterns []model.Pattern) error
	GetPatterns(ctx context.Context) ([]model.Pattern, error)

	GetDispositions(ctx context.Context) ([]model.Disposition, error)
	CacheSize(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) error

	Migrate(ctx context.Context) error
	Close() error
}

// RunStats summarizes one engine run for logging and reporting.
type RunStats struct {
	Total       int
	Resolved    int
	Unresolved  int
	NeedsReview int
	Failed      int
	CacheHits   int
	ModelCalls  int
	Clusters    int
	Clustered   bool
}
