package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			GenerationBackend:  "ollama",
			EmbeddingBackend:   "ollama",
			OllamaURL:          "http://127.0.0.1:1",
			GenerationModelID:  "llama3",
			EmbeddingModelID:   "nomic-embed-text",
			EmbeddingModelSize: 8,
		},
		VectorDB: config.VectorDBConfig{Backend: "memory", DistanceMethod: "cosine"},
		Index:    config.IndexConfig{LockBackend: "local", MaxQueryChars: 100},
		Files:    config.FilesConfig{AllowedTypes: []string{".txt"}, MaxSizeMB: 1},
		Storage:  config.StorageConfig{Backend: "local", Path: t.TempDir(), Bucket: "files"},
		Locale:   config.LocaleConfig{Primary: "en", Default: "en"},
	}
}

func TestNew_InMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.NotNil(t, a.Store)
	assert.IsType(t, &vectorstore.MemoryStore{}, a.Vectors)
	assert.Equal(t, 8, a.Embedder.EmbeddingSize())
	assert.NotNil(t, a.Indexer)
	assert.NotNil(t, a.Answerer)
	assert.NotNil(t, a.Documents)

	checks := a.Ready()
	assert.Contains(t, checks, "generation")
	assert.NotContains(t, checks, "database")
}

func TestNew_RejectsBadBackends(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.VectorDB.Backend = "pgvector"
	_, err := New(ctx, cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Index.LockBackend = "redis"
	_, err = New(ctx, cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.LLM.GenerationBackend = "nope"
	_, err = New(ctx, cfg, nil)
	assert.Error(t, err)
}
