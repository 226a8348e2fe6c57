// Package engine implements the core resolution engine: batch comment
// classification with a bounded worker pool, followed by a pattern
// clustering phase over the resolved set, followed by disposition routing.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"discern/internal/cluster"
	"discern/internal/model"
	"discern/internal/service"
)

// Engine orchestrates one batch run.
type Engine struct {
	classifier Classifier
	embedder   Embedder
	router     *Router
	logger     *slog.Logger
	onProgress func(done, total int)
	workers    int
	clusterK   int
	seed       int64
}

// Config holds configuration options for the resolution engine.
type Config struct {
	// OnProgress, if set, is invoked after each record classifies.
	OnProgress func(done, total int)
	// Workers bounds concurrent model calls; sized to the provider's rate
	// limits, not to CPU count.
	Workers int
	// ClusterCount is K for the pattern clustering phase.
	ClusterCount int
	// Seed fixes k-means initialization for reproducible clusters.
	Seed int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      5,
		ClusterCount: 3,
		Seed:         42,
	}
}

// New creates a resolution engine. The embedder may be nil, which disables
// the clustering phase entirely.
func New(classifier Classifier, embedder Embedder, sink service.DispositionSink, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.ClusterCount <= 0 {
		cfg.ClusterCount = DefaultConfig().ClusterCount
	}

	return &Engine{
		classifier: classifier,
		embedder:   embedder,
		router:     NewRouter(sink, logger),
		logger:     logger,
		onProgress: cfg.OnProgress,
		workers:    cfg.Workers,
		clusterK:   cfg.ClusterCount,
		seed:       cfg.Seed,
	}
}

// RunResult carries everything one batch run produced.
type RunResult struct {
	Classifications []model.ClassificationResult
	Assignments     []model.ClusterAssignment
	Patterns        []model.Pattern
	Dispositions    []model.Disposition
	Stats           service.RunStats
}

// Run classifies every record, clusters the resolved set, and routes one
// disposition per input record. Per-record failures never abort the batch;
// embedding or clustering failures degrade to routing without cluster ids.
// On cancellation the already-produced results are returned alongside the
// context error so callers can persist partial progress.
func (e *Engine) Run(ctx context.Context, records []model.DiscrepancyRecord) (*RunResult, error) {
	e.logger.Info("starting resolution run",
		"records", len(records),
		"workers", e.workers,
		"cluster_count", e.clusterK)

	result := &RunResult{
		Classifications: e.classifyAll(ctx, records),
	}

	for _, c := range result.Classifications {
		result.Stats.Total++
		switch c.Status {
		case model.StatusResolved:
			result.Stats.Resolved++
		case model.StatusUnresolved:
			result.Stats.Unresolved++
		case model.StatusNeedsReview:
			result.Stats.NeedsReview++
		case model.StatusClassificationFailed:
			result.Stats.Failed++
		}
		switch c.Source {
		case model.SourceCache:
			result.Stats.CacheHits++
		case model.SourceModel:
			result.Stats.ModelCalls += c.Attempts
		}
	}

	// Clustering is a barrier: it only sees the complete resolved set, after
	// every record has a terminal classification.
	if ctx.Err() == nil {
		e.clusterResolved(ctx, records, result)
	}

	// Every classification is terminal by now; cancellation must not drop
	// the dispositions they map to.
	e.route(context.WithoutCancel(ctx), records, result)

	e.logger.Info("resolution run complete",
		"total", result.Stats.Total,
		"resolved", result.Stats.Resolved,
		"unresolved", result.Stats.Unresolved,
		"needs_review", result.Stats.NeedsReview,
		"failed", result.Stats.Failed,
		"cache_hits", result.Stats.CacheHits,
		"model_calls", result.Stats.ModelCalls,
		"clustered", result.Stats.Clustered)

	return result, ctx.Err()
}

// classifyAll runs the classification pass with a bounded worker pool. The
// only suspension points are the model call and its backoff sleeps, so slow
// records never block the rest of the batch.
func (e *Engine) classifyAll(ctx context.Context, records []model.DiscrepancyRecord) []model.ClassificationResult {
	results := make([]model.ClassificationResult, len(records))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	var done atomic.Int64

	for i, rec := range records {
		wg.Add(1)
		go func(idx int, rec model.DiscrepancyRecord) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				// Canceled before this record started; it still needs a
				// terminal state so routing stays complete.
				results[idx] = model.ClassificationResult{
					OrderID:      rec.OrderID,
					Status:       model.StatusClassificationFailed,
					ClassifiedAt: time.Now(),
				}
				return
			}

			results[idx] = e.classifier.Classify(ctx, rec.OrderID, rec.Comment)

			if e.onProgress != nil {
				e.onProgress(int(done.Add(1)), len(records))
			}
		}(i, rec)
	}

	wg.Wait()
	return results
}

// clusterResolved embeds every resolved comment and partitions the vectors
// into patterns. Any failure here is phase-fatal only: the run keeps its
// classifications and routes without cluster ids.
func (e *Engine) clusterResolved(ctx context.Context, records []model.DiscrepancyRecord, result *RunResult) {
	if e.embedder == nil {
		return
	}

	commentByOrder := make(map[string]string, len(records))
	for _, rec := range records {
		commentByOrder[rec.OrderID] = rec.Comment
	}

	var orderIDs []string
	var texts []string
	for _, c := range result.Classifications {
		if c.Status != model.StatusResolved {
			continue
		}
		orderIDs = append(orderIDs, c.OrderID)
		texts = append(texts, commentByOrder[c.OrderID])
	}

	if len(texts) == 0 {
		return
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		e.logger.Warn("embedding phase failed, routing resolved records without clusters",
			"embedder", e.embedder.Name(),
			"resolved", len(texts),
			"error", err)
		return
	}

	points := make([]cluster.Point, len(vectors))
	for i, v := range vectors {
		points[i] = cluster.Point{
			OrderID: orderIDs[i],
			Comment: texts[i],
			Vector:  v,
		}
	}

	clustered, err := cluster.Run(points, e.clusterK, e.seed)
	if err != nil {
		e.logger.Warn("clustering phase failed, routing resolved records without clusters",
			"error", err)
		return
	}

	result.Assignments = clustered.Assignments
	result.Patterns = clustered.Patterns
	result.Stats.Clusters = clustered.K
	result.Stats.Clustered = true

	e.logger.Info("pattern clustering complete",
		"resolved", len(points),
		"clusters", clustered.K)
}

// route emits exactly one disposition per input record.
func (e *Engine) route(ctx context.Context, records []model.DiscrepancyRecord, result *RunResult) {
	clusterByOrder := make(map[string]int, len(result.Assignments))
	for _, a := range result.Assignments {
		clusterByOrder[a.OrderID] = a.Cluster
	}

	resultByOrder := make(map[string]model.ClassificationResult, len(result.Classifications))
	for _, c := range result.Classifications {
		resultByOrder[c.OrderID] = c
	}

	for _, rec := range records {
		c := resultByOrder[rec.OrderID]
		tag, ok := model.DispositionFor(c.Status)
		if !ok {
			// Unreachable for results produced by Classify; guard anyway so
			// no record is dropped silently.
			tag = model.DispositionNeedsReview
		}

		d := model.Disposition{
			OrderID:     rec.OrderID,
			Tag:         tag,
			RawResponse: c.RawResponse,
			Comment:     rec.Comment,
		}
		if id, clustered := clusterByOrder[rec.OrderID]; clustered && tag == model.DispositionResolved {
			cid := id
			d.Cluster = &cid
		}

		if err := e.router.Route(ctx, d); err != nil {
			e.logger.Error("failed to route disposition",
				"order_id", rec.OrderID,
				"tag", tag,
				"error", err)
		}
		result.Dispositions = append(result.Dispositions, d)
	}
}
