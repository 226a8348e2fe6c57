package engine

import (
	"context"

	"discern/internal/model"
)

// Classifier defines the contract for resolution comment classification.
// Classify must always return a terminal result; failure modes are statuses,
// not errors, so one bad record cannot abort a batch.
type Classifier interface {
	Classify(ctx context.Context, orderID, comment string) model.ClassificationResult
}

// Embedder maps comment texts to fixed-dimension vectors, order-preserving.
// The embedding.Engine implementations satisfy this.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}
