package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragguard/internal/config"
)

func quietOptions() Options {
	return Options{
		InputMaxCharacters: 20,
		MaxTokens:          64,
		Temperature:        0.1,
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestOpenAIProvider(t *testing.T) {
	var gotEmbedInput []string
	var gotMessages []map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			var body struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gotEmbedInput = body.Input
			_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"m","usage":{"prompt_tokens":3,"total_tokens":3}}`)
		case "/chat/completions":
			var body struct {
				Messages []map[string]string `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gotMessages = body.Messages
			_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"the answer"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, quietOptions())
	p.SetEmbeddingModel("text-embedding-3-small", 3)
	p.SetGenerationModel("gpt-4o-mini")

	t.Run("embed truncates input and returns vector", func(t *testing.T) {
		vec := p.EmbedText(context.Background(), "  a fairly long text that exceeds the budget", PurposeDocument)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
		assert.Equal(t, []string{"a fairly long text"}, gotEmbedInput)
	})

	t.Run("generate leaves history untouched", func(t *testing.T) {
		history := []Message{p.ConstructPrompt("be safe", RoleSystem)}
		answer := p.GenerateText(context.Background(), "question", history)
		assert.Equal(t, "the answer", answer)
		require.Len(t, gotMessages, 2)
		assert.Equal(t, "system", gotMessages[0]["role"])
		assert.Equal(t, "user", gotMessages[1]["role"])
		assert.Equal(t, "question", gotMessages[1]["content"])
		assert.Len(t, history, 1)
	})

	t.Run("dimension mismatch is absent", func(t *testing.T) {
		p.SetEmbeddingModel("text-embedding-3-small", 4)
		defer p.SetEmbeddingModel("text-embedding-3-small", 3)
		assert.Nil(t, p.EmbedText(context.Background(), "x", PurposeQuery))
	})
}

func TestOpenAIProvider_Unconfigured(t *testing.T) {
	p := NewOpenAIProvider("", "", quietOptions())
	p.SetEmbeddingModel("text-embedding-3-small", 3)
	p.SetGenerationModel("gpt-4o-mini")

	assert.Nil(t, p.EmbedText(context.Background(), "hello", PurposeDocument))
	assert.Empty(t, p.GenerateText(context.Background(), "hello", nil))
}

func TestOpenAIProvider_BackendFailureIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, quietOptions())
	p.SetEmbeddingModel("text-embedding-3-small", 3)
	p.SetGenerationModel("gpt-4o-mini")

	assert.Nil(t, p.EmbedText(context.Background(), "hello", PurposeDocument))
	assert.Empty(t, p.GenerateText(context.Background(), "hello", nil))
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/embed":
			_, _ = io.WriteString(w, `{"embeddings":[[1,0]]}`)
		case "/api/chat":
			var body ollamaChatReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.False(t, body.Stream)
			require.Len(t, body.Messages, 2)
			assert.Equal(t, "system", body.Messages[0].Role)
			_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"local answer"},"done":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, quietOptions())
	p.SetEmbeddingModel("nomic-embed-text", 2)
	p.SetGenerationModel("llama3")

	assert.Equal(t, []float32{1, 0}, p.EmbedText(context.Background(), "text", PurposeDocument))
	history := []Message{p.ConstructPrompt("sys", RoleSystem)}
	assert.Equal(t, "local answer", p.GenerateText(context.Background(), "q", history))
}

func TestOllamaProvider_NonOKIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, quietOptions())
	p.SetEmbeddingModel("missing", 2)
	assert.Nil(t, p.EmbedText(context.Background(), "text", PurposeDocument))
}

func TestCohereProvider(t *testing.T) {
	var inputTypes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embed":
			var body cohereEmbedReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			inputTypes = append(inputTypes, body.InputType)
			_, _ = io.WriteString(w, `{"embeddings":{"float":[[0.5,0.5]]}}`)
		case "/chat":
			var body cohereChatReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.ChatHistory, 1)
			assert.Equal(t, "SYSTEM", body.ChatHistory[0].Role)
			assert.Equal(t, "what is it?", body.Message)
			_, _ = io.WriteString(w, `{"text":"cohere answer"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewCohereProvider("co-key", srv.URL+"/", quietOptions())
	p.SetEmbeddingModel("embed-english-v3.0", 2)
	p.SetGenerationModel("command-r")

	assert.Equal(t, []float32{0.5, 0.5}, p.EmbedText(context.Background(), "doc", PurposeDocument))
	assert.Equal(t, []float32{0.5, 0.5}, p.EmbedText(context.Background(), "query", PurposeQuery))
	assert.Equal(t, []string{"search_document", "search_query"}, inputTypes)

	msg := p.ConstructPrompt("system text", RoleSystem)
	assert.Equal(t, "SYSTEM", msg.Role)
	assert.Equal(t, "cohere answer", p.GenerateText(context.Background(), "what is it?", []Message{msg}))
}

func TestAnthropicProvider_EmbeddingAlwaysAbsent(t *testing.T) {
	p := NewAnthropicProvider("key", quietOptions())
	p.SetEmbeddingModel("anything", 3)
	assert.Nil(t, p.EmbedText(context.Background(), "text", PurposeDocument))
}

func TestAnthropicProvider_UnconfiguredGeneration(t *testing.T) {
	p := NewAnthropicProvider("", quietOptions())
	p.SetGenerationModel("claude-sonnet-4-20250514")
	assert.Empty(t, p.GenerateText(context.Background(), "q", nil))
}

func TestFactory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.LLMConfig{
		GenerationBackend:  "ollama",
		EmbeddingBackend:   "cohere",
		OllamaURL:          "http://localhost:11434",
		CohereKey:          "k",
		GenerationModelID:  "llama3",
		EmbeddingModelID:   "embed-english-v3.0",
		EmbeddingModelSize: 1024,
	}

	gen, err := NewGenerationProvider(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, "ollama", gen.Name())

	emb, err := NewEmbeddingProvider(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, "cohere", emb.Name())
	assert.Equal(t, 1024, emb.EmbeddingSize())

	_, err = New("gemini", cfg, logger)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
