package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"discern/internal/model"
)

// mockClassifier maps comment text to a fixed terminal status.
type mockClassifier struct {
	statuses map[string]model.Status
	mu       sync.Mutex
	calls    int
}

func (m *mockClassifier) Classify(_ context.Context, orderID, comment string) model.ClassificationResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	status, ok := m.statuses[comment]
	if !ok {
		status = model.StatusResolved
	}

	result := model.ClassificationResult{
		OrderID:      orderID,
		Status:       status,
		Source:       model.SourceModel,
		Attempts:     1,
		ClassifiedAt: time.Now(),
	}
	switch status {
	case model.StatusResolved:
		result.Label = model.LabelResolved
	case model.StatusUnresolved:
		result.Label = model.LabelUnresolved
	case model.StatusNeedsReview:
		result.RawResponse = "maybe unresolved??"
	}
	return result
}

// mockEmbedder returns deterministic vectors spread along one axis, grouped
// by a keyword in the comment when present.
type mockEmbedder struct {
	err        error
	batchSizes []int
	mu         sync.Mutex
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		base := float32(0)
		switch {
		case strings.Contains(text, "vendor"):
			base = 0
		case strings.Contains(text, "bank"):
			base = 100
		default:
			base = 200
		}
		vectors[i] = []float32{base + float32(i%3), 1}
	}
	return vectors, nil
}

func (m *mockEmbedder) Name() string { return "mock" }

// mockSink records dispositions and can fail a configurable number of times.
type mockSink struct {
	saved    []model.Disposition
	failures int
	mu       sync.Mutex
}

func (m *mockSink) SaveDisposition(ctx context.Context, d model.Disposition) error {
	// Real database drivers refuse canceled contexts.
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return fmt.Errorf("sink unavailable")
	}
	m.saved = append(m.saved, d)
	return nil
}

func (m *mockSink) all() []model.Disposition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Disposition(nil), m.saved...)
}
