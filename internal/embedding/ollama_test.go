package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedBatchPreservesOrder(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Prompt)

		// Encode the call index into the vector so order is observable.
		resp := ollamaEmbedResponse{Embedding: []float32{float32(len(prompts)), 0.5}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	engine, err := newOllamaEngine(server.URL, "embeddinggemma")
	require.NoError(t, err)

	vectors, err := engine.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, prompts)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
}

func TestOllamaEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine, err := newOllamaEngine(server.URL, "")
	require.NoError(t, err)

	_, err = engine.Embed(context.Background(), "anything")
	assert.Error(t, err)
}

func TestNewEngineUnknownProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "sentencepiece"})
	assert.Error(t, err)
}

func TestNewEngineDefaultsToOllama(t *testing.T) {
	engine, err := NewEngine(Config{})
	require.NoError(t, err)
	assert.Equal(t, "ollama:embeddinggemma", engine.Name())
}
