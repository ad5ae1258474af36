package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMBEDDING_MODEL_SIZE", "")
	t.Setenv("VECTORDB_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 768, cfg.LLM.EmbeddingModelSize)
	assert.Equal(t, "pgvector", cfg.VectorDB.Backend)
	assert.Equal(t, 100, cfg.Index.EmbedIntervalMs)
	assert.False(t, cfg.Index.AlwaysRecreate)
	assert.Equal(t, []string{".txt", ".pdf", ".docx"}, cfg.Files.AllowedTypes)
	assert.Equal(t, "en", cfg.Locale.Default)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EMBEDDING_MODEL_SIZE", "1536")
	t.Setenv("GENERATION_DEFAULT_TEMPERATURE", "0.7")
	t.Setenv("INDEX_ALWAYS_RECREATE", "true")
	t.Setenv("FILE_ALLOWED_TYPES", " .TXT, .pdf ,,")
	t.Setenv("VECTOR_DB_DISTANCE_METHOD", "DOT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, 1536, cfg.LLM.EmbeddingModelSize)
	assert.InDelta(t, 0.7, cfg.LLM.GenerationTemperature, 1e-9)
	assert.True(t, cfg.Index.AlwaysRecreate)
	assert.Equal(t, []string{".txt", ".pdf"}, cfg.Files.AllowedTypes)
	assert.Equal(t, "dot", cfg.VectorDB.DistanceMethod)
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidate(t *testing.T) {
	t.Run("missing keys are reported once", func(t *testing.T) {
		cfg := &Config{
			LLM: LLMConfig{
				GenerationBackend:  "cohere",
				EmbeddingBackend:   "cohere",
				EmbeddingModelSize: 768,
			},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t, "missing required env vars: DATABASE_URL, COHERE_API_KEY", err.Error())
	})

	t.Run("openai compatible endpoint needs no key", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{URL: "postgres://localhost/rag"},
			LLM: LLMConfig{
				GenerationBackend:  "openai",
				EmbeddingBackend:   "ollama",
				OpenAIURL:          "http://localhost:11434/v1",
				EmbeddingModelSize: 768,
			},
		}
		assert.NoError(t, cfg.Validate())
	})
}
