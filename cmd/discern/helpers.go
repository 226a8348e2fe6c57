package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"discern/internal/config"
	"discern/internal/embedding"
	"discern/internal/llm"
	"discern/internal/service"
	"discern/internal/storage"
)

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/discern/discern.db"
	}
	dbPath = config.ExpandPath(dbPath)

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// createClassifier builds the LLM classifier from configuration. The cache
// store may be nil for commands that only touch in-memory state.
func createClassifier(store service.CacheStore) (*llm.Classifier, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai"
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxAttempts: viper.GetInt("llm.max_attempts"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		PerOrderKey: viper.GetBool("cache.per_order"),
	}

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60 // requests per minute
	}

	switch provider {
	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	classifier, err := llm.NewClassifier(cfg, store, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	return classifier, nil
}

// createEmbedder builds the embedding engine from configuration. A nil
// engine (with no error) means clustering is disabled.
func createEmbedder() (embedding.Engine, error) {
	if viper.GetBool("clustering.disabled") {
		return nil, nil
	}

	cfg := embedding.Config{
		Provider:       viper.GetString("embedding.provider"),
		OllamaEndpoint: viper.GetString("embedding.ollama_endpoint"),
		OllamaModel:    viper.GetString("embedding.ollama_model"),
		GenAIModel:     viper.GetString("embedding.genai_model"),
	}

	cfg.GenAIAPIKey = viper.GetString("embedding.genai_api_key")
	if cfg.GenAIAPIKey == "" {
		cfg.GenAIAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	engine, err := embedding.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}
	return engine, nil
}
