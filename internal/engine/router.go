package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"discern/internal/model"
	"discern/internal/service"
)

// Router hands terminal dispositions to the downstream collaborator. Routing
// is idempotent: re-routing the same order id with the same terminal state
// does not duplicate downstream writes.
type Router struct {
	sink    service.DispositionSink
	logger  *slog.Logger
	emitted map[string]struct{}
	mu      sync.Mutex
}

// NewRouter creates a router over the given sink.
func NewRouter(sink service.DispositionSink, logger *slog.Logger) *Router {
	return &Router{
		sink:    sink,
		logger:  logger,
		emitted: make(map[string]struct{}),
	}
}

// Route emits one disposition. A repeat of an already-emitted
// order id + tag pair is a no-op.
func (r *Router) Route(ctx context.Context, d model.Disposition) error {
	key := d.OrderID + "|" + string(d.Tag)

	r.mu.Lock()
	if _, ok := r.emitted[key]; ok {
		r.mu.Unlock()
		r.logger.Debug("disposition already routed", "order_id", d.OrderID, "tag", d.Tag)
		return nil
	}
	r.emitted[key] = struct{}{}
	r.mu.Unlock()

	if err := r.sink.SaveDisposition(ctx, d); err != nil {
		// Allow a later retry to re-emit this pair.
		r.mu.Lock()
		delete(r.emitted, key)
		r.mu.Unlock()
		return fmt.Errorf("failed to route disposition for order %s: %w", d.OrderID, err)
	}

	r.logger.Debug("disposition routed", "order_id", d.OrderID, "tag", d.Tag)
	return nil
}
