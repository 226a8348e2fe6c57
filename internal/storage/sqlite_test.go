package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discern/internal/model"
	"discern/internal/service"
)

var _ service.Storage = (*SQLiteStorage)(nil)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestCacheRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	entries := map[string]model.Label{
		"refund issued by vendor": model.LabelResolved,
		"pending with bank":       model.LabelUnresolved,
	}
	require.NoError(t, store.SaveCache(ctx, entries))

	loaded, err := store.LoadCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	size, err := store.CacheSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestSaveCacheUpsertsAndGrows(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCache(ctx, map[string]model.Label{
		"refund issued": model.LabelUnresolved,
	}))
	require.NoError(t, store.SaveCache(ctx, map[string]model.Label{
		"refund issued":  model.LabelResolved,
		"dispute closed": model.LabelResolved,
	}))

	loaded, err := store.LoadCache(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, model.LabelResolved, loaded["refund issued"])
}

func TestClearCache(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCache(ctx, map[string]model.Label{
		"refund issued": model.LabelResolved,
	}))
	require.NoError(t, store.ClearCache(ctx))

	size, err := store.CacheSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSaveClassificationUpserts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first := &model.ClassificationResult{
		OrderID:      "1001",
		Label:        model.LabelUnresolved,
		Status:       model.StatusUnresolved,
		Source:       model.SourceModel,
		RawResponse:  "Unresolved",
		Attempts:     1,
		ClassifiedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveClassification(ctx, first))

	second := &model.ClassificationResult{
		OrderID:      "1001",
		Label:        model.LabelResolved,
		Status:       model.StatusResolved,
		Source:       model.SourceModel,
		RawResponse:  "Resolved",
		Attempts:     2,
		ClassifiedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveClassification(ctx, second))

	results, err := store.GetClassifications(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.StatusResolved, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts)
}

func TestSaveClassificationRejectsInvalid(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.Error(t, store.SaveClassification(ctx, nil))
	require.Error(t, store.SaveClassification(ctx, &model.ClassificationResult{}))
}

func TestClusterOutputReplacedEachRun(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveClusterAssignments(ctx, []model.ClusterAssignment{
		{OrderID: "1001", Cluster: 0, Distance: 0.1},
		{OrderID: "1002", Cluster: 1, Distance: 0.2},
	}))
	require.NoError(t, store.SavePatterns(ctx, []model.Pattern{
		{Cluster: 0, Exemplar: "refund issued", ExemplarOrderID: "1001", Size: 1},
		{Cluster: 1, Exemplar: "dispute closed", ExemplarOrderID: "1002", Size: 1},
	}))

	// A second run replaces rather than appends.
	require.NoError(t, store.SaveClusterAssignments(ctx, []model.ClusterAssignment{
		{OrderID: "1003", Cluster: 0, Distance: 0.3},
	}))
	require.NoError(t, store.SavePatterns(ctx, []model.Pattern{
		{Cluster: 0, Exemplar: "chargeback reversed", ExemplarOrderID: "1003", Size: 1},
	}))

	patterns, err := store.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "chargeback reversed", patterns[0].Exemplar)
	assert.Equal(t, "1003", patterns[0].ExemplarOrderID)
}

func TestSaveDispositionIdempotentPerOrderAndTag(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cluster := 2
	d := model.Disposition{
		OrderID: "1001",
		Tag:     model.DispositionResolved,
		Cluster: &cluster,
		Comment: "refund issued by vendor",
	}
	require.NoError(t, store.SaveDisposition(ctx, d))
	require.NoError(t, store.SaveDisposition(ctx, d))

	dispositions, err := store.GetDispositions(ctx)
	require.NoError(t, err)
	require.Len(t, dispositions, 1)
	require.NotNil(t, dispositions[0].Cluster)
	assert.Equal(t, 2, *dispositions[0].Cluster)
}

func TestSaveDispositionDistinctTags(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDisposition(ctx, model.Disposition{
		OrderID: "1001", Tag: model.DispositionNeedsReview,
	}))
	require.NoError(t, store.SaveDisposition(ctx, model.Disposition{
		OrderID: "1001", Tag: model.DispositionResolved,
	}))

	dispositions, err := store.GetDispositions(ctx)
	require.NoError(t, err)
	assert.Len(t, dispositions, 2)

	// Cluster stays nil when the record never clustered.
	for _, d := range dispositions {
		if d.Tag == model.DispositionNeedsReview {
			assert.Nil(t, d.Cluster)
		}
	}
}

func TestNewSQLiteStorageRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	require.Error(t, err)
}
