// Package embedding provides vector embedding generation for resolved
// comment text. Supports a local Ollama server and Google GenAI as backends.
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Engine generates fixed-dimension vector embeddings for text. Batch calls
// are order-preserving: the i-th vector embeds the i-th input.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string

	OllamaEndpoint string // default "http://localhost:11434"
	OllamaModel    string // default "embeddinggemma"

	GenAIAPIKey string
	GenAIModel  string // default "gemini-embedding-001"
}

// NewEngine creates an embedding engine based on configuration.
func NewEngine(cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		return newOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		return newGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}
