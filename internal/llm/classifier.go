package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"discern/internal/common"
	"discern/internal/model"
	"discern/internal/normalize"
	"discern/internal/service"
)

const systemPrompt = "You are a financial discrepancy resolution classifier. " +
	"You respond with exactly one word and nothing else."

// Classifier turns free-text resolution comments into validated
// classification results. It is safe for concurrent use by the engine's
// worker pool; the response cache is the only shared mutable state.
type Classifier struct {
	client      Client
	cache       *responseCache
	store       service.CacheStore
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
	maxAttempts int
	perOrderKey bool
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxAttempts int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
	PerOrderKey bool
}

// NewClassifier creates a new LLM-based comment classifier. The cache store
// is optional; a nil store means the cache lives for this process only.
func NewClassifier(cfg Config, store service.CacheStore, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return newClassifierWithClient(client, cfg, store, logger), nil
}

func newClassifierWithClient(client Client, cfg Config, store service.CacheStore, logger *slog.Logger) *Classifier {
	retryOpts := service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Classifier{
		client:      client,
		cache:       newResponseCache(),
		store:       store,
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
		maxAttempts: maxAttempts,
		perOrderKey: cfg.PerOrderKey,
	}
}

// Warm seeds the response cache from the persistent store. An unreachable
// store degrades to an empty cache; the batch proceeds without it.
func (c *Classifier) Warm(ctx context.Context) {
	if c.store == nil {
		return
	}

	entries, err := c.store.LoadCache(ctx)
	if err != nil {
		c.logger.Warn("cache backend unavailable, classifying without persisted cache",
			"error", fmt.Errorf("%w: %v", common.ErrCacheUnavailable, err))
		return
	}

	c.cache.Load(entries)
	c.logger.Info("response cache warmed", "entries", len(entries))
}

// Flush writes the response cache back to the persistent store.
func (c *Classifier) Flush(ctx context.Context) {
	if c.store == nil {
		return
	}

	if err := c.store.SaveCache(ctx, c.cache.Snapshot()); err != nil {
		c.logger.Warn("failed to persist response cache", "error", err)
	}
}

// CacheSize returns the number of cached labels.
func (c *Classifier) CacheSize() int {
	return c.cache.Size()
}

// Classify produces a terminal classification result for one record. It
// never returns an error: every failure mode maps to a result status, so a
// single bad record cannot abort the batch.
func (c *Classifier) Classify(ctx context.Context, orderID, comment string) model.ClassificationResult {
	key := c.cacheKey(orderID, comment)

	if normalize.IsEmpty(normalize.Key(comment)) {
		// Empty comments are never submitted to the model.
		return model.ClassificationResult{
			OrderID:      orderID,
			Status:       model.StatusNeedsReview,
			ClassifiedAt: time.Now(),
		}
	}

	if label, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit for comment", "order_id", orderID)
		return model.ClassificationResult{
			OrderID:      orderID,
			Label:        label,
			Source:       model.SourceCache,
			Status:       statusForLabel(label),
			ClassifiedAt: time.Now(),
		}
	}

	var raw string
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		response, err := c.complete(ctx, c.buildPrompt(orderID, comment, attempt > 1))
		if err != nil {
			c.logger.Error("model call failed after transport retries",
				"order_id", orderID,
				"attempt", attempt,
				"error", err)
			return model.ClassificationResult{
				OrderID:      orderID,
				RawResponse:  raw,
				Status:       model.StatusClassificationFailed,
				Attempts:     attempt,
				ClassifiedAt: time.Now(),
			}
		}

		raw = response
		label, ok := ParseLabel(response)
		if !ok {
			c.logger.Warn("invalid model response, re-prompting",
				"order_id", orderID,
				"attempt", attempt,
				"response", response)
			continue
		}

		c.cache.Put(key, label)
		c.logger.Info("comment classified",
			"order_id", orderID,
			"label", label,
			"attempts", attempt)
		return model.ClassificationResult{
			OrderID:      orderID,
			Label:        label,
			Source:       model.SourceModel,
			RawResponse:  raw,
			Status:       statusForLabel(label),
			Attempts:     attempt,
			ClassifiedAt: time.Now(),
		}
	}

	// The model never produced a valid label within the attempt bound. Keep
	// the last raw response for audit and hand the record to a human.
	c.logger.Warn("model response invalid after all attempts",
		"order_id", orderID,
		"attempts", c.maxAttempts,
		"last_response", raw)
	return model.ClassificationResult{
		OrderID:      orderID,
		RawResponse:  raw,
		Status:       model.StatusNeedsReview,
		Attempts:     c.maxAttempts,
		ClassifiedAt: time.Now(),
	}
}

// complete performs one validated-prompt attempt, retrying transport-level
// failures with exponential backoff.
func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	var response string

	err := common.WithRetry(ctx, func() error {
		if err := c.rateLimiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		resp, err := c.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			var retryable *common.RetryableError
			if errors.As(err, &retryable) {
				return err
			}
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrModelTransport, err),
				Retryable: true,
			}
		}

		response = resp
		return nil
	}, c.retryOpts)

	if err != nil {
		return "", err
	}
	return response, nil
}

func (c *Classifier) cacheKey(orderID, comment string) string {
	key := normalize.Key(comment)
	if c.perOrderKey {
		// Per-order keying trades cache reuse for per-record isolation.
		key = orderID + "\x1f" + key
	}
	return key
}

// buildPrompt creates the strictly constrained classification prompt. After
// an invalid response the instruction is re-phrased more forcefully.
func (c *Classifier) buildPrompt(orderID, comment string, rephrased bool) string {
	if rephrased {
		return fmt.Sprintf(`Your previous reply was not a valid label.

Classify the resolution status for Order ID %s from this comment: %q.

Respond with EXACTLY one word: Resolved or Unresolved.
Do not explain. Do not add punctuation. Any other output is rejected.`, orderID, comment)
	}

	return fmt.Sprintf(`Classify the resolution status for Order ID %s from this comment: %q.
Options: [Resolved, Unresolved].
Respond ONLY with one word: Resolved or Unresolved.`, orderID, comment)
}

func statusForLabel(label model.Label) model.Status {
	if label == model.LabelResolved {
		return model.StatusResolved
	}
	return model.StatusUnresolved
}

// Close releases classifier resources. The rate limiter refills lazily, so
// there is nothing running in the background to stop.
func (c *Classifier) Close() error {
	return nil
}
