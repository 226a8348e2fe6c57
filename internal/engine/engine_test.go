package engine

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"discern/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int, comment func(i int) string) []model.DiscrepancyRecord {
	records := make([]model.DiscrepancyRecord, n)
	for i := range records {
		records[i] = model.DiscrepancyRecord{
			OrderID: fmt.Sprintf("%d", 1001+i),
			Comment: comment(i),
			Status:  model.StatusUnclassified,
		}
	}
	return records
}

func TestRunRoutesEveryRecordExactlyOnce(t *testing.T) {
	classifier := &mockClassifier{statuses: map[string]model.Status{
		"c-0": model.StatusResolved,
		"c-1": model.StatusUnresolved,
		"c-2": model.StatusNeedsReview,
		"c-3": model.StatusClassificationFailed,
	}}
	sink := &mockSink{}
	eng := New(classifier, &mockEmbedder{}, sink, DefaultConfig(), slog.Default())

	records := makeRecords(4, func(i int) string { return fmt.Sprintf("c-%d", i) })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	saved := sink.all()
	require.Len(t, saved, 4)
	require.Len(t, result.Dispositions, 4)

	tags := make(map[string]model.DispositionTag)
	for _, d := range saved {
		tags[d.OrderID] = d.Tag
	}
	assert.Equal(t, model.DispositionResolved, tags["1001"])
	assert.Equal(t, model.DispositionUnresolved, tags["1002"])
	assert.Equal(t, model.DispositionNeedsReview, tags["1003"])
	assert.Equal(t, model.DispositionFailed, tags["1004"])

	assert.Equal(t, 1, result.Stats.Resolved)
	assert.Equal(t, 1, result.Stats.Unresolved)
	assert.Equal(t, 1, result.Stats.NeedsReview)
	assert.Equal(t, 1, result.Stats.Failed)
}

func TestRunClustersResolvedRecords(t *testing.T) {
	// 10 resolved records across three comment families, K=3.
	comments := []string{
		"vendor refunded", "vendor credited us", "vendor reshipped", "vendor closed ticket",
		"bank reversed charge", "bank fixed posting", "bank reconciled entry",
		"duplicate entry removed", "duplicate row purged", "duplicate filtered",
	}
	classifier := &mockClassifier{}
	embedder := &mockEmbedder{}
	sink := &mockSink{}
	eng := New(classifier, embedder, sink, Config{Workers: 3, ClusterCount: 3, Seed: 42}, slog.Default())

	records := makeRecords(10, func(i int) string { return comments[i] })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	assert.True(t, result.Stats.Clustered)
	assert.Equal(t, 3, result.Stats.Clusters)
	require.Len(t, result.Assignments, 10)
	for _, a := range result.Assignments {
		assert.GreaterOrEqual(t, a.Cluster, 0)
		assert.Less(t, a.Cluster, 3)
	}
	assert.Len(t, result.Patterns, 3)

	// Every resolved disposition carries its cluster id.
	for _, d := range sink.all() {
		require.Equal(t, model.DispositionResolved, d.Tag)
		require.NotNil(t, d.Cluster)
		assert.Less(t, *d.Cluster, 3)
	}

	// The embedding batch saw the complete resolved set at once: clustering
	// waited for the classification barrier.
	require.Len(t, embedder.batchSizes, 1)
	assert.Equal(t, 10, embedder.batchSizes[0])
}

func TestRunClusterCountDegradesToRecordCount(t *testing.T) {
	classifier := &mockClassifier{}
	sink := &mockSink{}
	eng := New(classifier, &mockEmbedder{}, sink, Config{ClusterCount: 3, Seed: 42}, slog.Default())

	records := makeRecords(2, func(i int) string { return fmt.Sprintf("vendor case %d", i) })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	assert.True(t, result.Stats.Clustered)
	assert.Equal(t, 2, result.Stats.Clusters)
	assert.Len(t, result.Patterns, 2)
}

func TestRunEmbeddingFailureDegradesGracefully(t *testing.T) {
	classifier := &mockClassifier{}
	embedder := &mockEmbedder{err: fmt.Errorf("embedding service unavailable")}
	sink := &mockSink{}
	eng := New(classifier, embedder, sink, DefaultConfig(), slog.Default())

	records := makeRecords(5, func(i int) string { return fmt.Sprintf("fixed %d", i) })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	// Classifications preserved, routed without cluster ids.
	assert.False(t, result.Stats.Clustered)
	assert.Empty(t, result.Assignments)
	assert.Equal(t, 5, result.Stats.Resolved)

	saved := sink.all()
	require.Len(t, saved, 5)
	for _, d := range saved {
		assert.Equal(t, model.DispositionResolved, d.Tag)
		assert.Nil(t, d.Cluster)
	}
}

func TestRunSkipsClusteringWithoutResolvedRecords(t *testing.T) {
	classifier := &mockClassifier{statuses: map[string]model.Status{
		"open": model.StatusUnresolved,
	}}
	embedder := &mockEmbedder{}
	sink := &mockSink{}
	eng := New(classifier, embedder, sink, DefaultConfig(), slog.Default())

	records := makeRecords(3, func(_ int) string { return "open" })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	assert.False(t, result.Stats.Clustered)
	assert.Empty(t, embedder.batchSizes)
	assert.Len(t, sink.all(), 3)
}

func TestRunWithoutEmbedderRoutesEverything(t *testing.T) {
	classifier := &mockClassifier{}
	sink := &mockSink{}
	eng := New(classifier, nil, sink, DefaultConfig(), slog.Default())

	records := makeRecords(4, func(i int) string { return fmt.Sprintf("done %d", i) })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	assert.False(t, result.Stats.Clustered)
	assert.Len(t, sink.all(), 4)
}

func TestRunSinkFailureDoesNotAbortBatch(t *testing.T) {
	classifier := &mockClassifier{}
	sink := &mockSink{failures: 1}
	eng := New(classifier, nil, sink, DefaultConfig(), slog.Default())

	records := makeRecords(3, func(i int) string { return fmt.Sprintf("done %d", i) })
	result, err := eng.Run(context.Background(), records)
	require.NoError(t, err)

	// The failed write is logged; the other records still route, and the
	// result stream stays complete.
	assert.Len(t, sink.all(), 2)
	assert.Len(t, result.Dispositions, 3)
}

func TestRunReportsProgress(t *testing.T) {
	classifier := &mockClassifier{}
	sink := &mockSink{}

	var final int
	cfg := DefaultConfig()
	cfg.OnProgress = func(done, total int) {
		if done == total {
			final = done
		}
	}
	eng := New(classifier, nil, sink, cfg, slog.Default())

	records := makeRecords(6, func(i int) string { return fmt.Sprintf("done %d", i) })
	_, err := eng.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 6, final)
}

func TestRunCanceledContextPreservesPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	classifier := &mockClassifier{}
	sink := &mockSink{}
	eng := New(classifier, &mockEmbedder{}, sink, DefaultConfig(), slog.Default())

	records := makeRecords(3, func(i int) string { return fmt.Sprintf("done %d", i) })
	result, err := eng.Run(ctx, records)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	// Every record still has a terminal state; clustering was skipped.
	assert.Len(t, result.Classifications, 3)
	assert.False(t, result.Stats.Clustered)
}

func TestRunCanceledContextStillRoutesToSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	classifier := &mockClassifier{}
	sink := &mockSink{}
	eng := New(classifier, nil, sink, DefaultConfig(), slog.Default())

	records := makeRecords(4, func(i int) string { return fmt.Sprintf("done %d", i) })
	result, err := eng.Run(ctx, records)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	// The sink rejects canceled contexts, so these writes only land because
	// routing outlives the run's cancellation.
	saved := sink.all()
	require.Len(t, saved, 4)
	assert.Len(t, result.Dispositions, 4)

	seen := make(map[string]bool)
	for _, d := range saved {
		assert.NotEmpty(t, d.Tag)
		seen[d.OrderID] = true
	}
	assert.Len(t, seen, 4)
}
