package llm

import "context"

// Client defines the interface for LLM providers. The response is the raw
// model text; validation against the allowed labels happens in the
// classifier, never in a provider client.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
