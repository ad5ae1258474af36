package llm

import (
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/ragguard/internal/config"
)

// New builds the provider registered under backend. Model selection is left
// to the caller.
func New(backend string, cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	opts := Options{
		InputMaxCharacters: cfg.InputMaxCharacters,
		MaxTokens:          cfg.GenerationMaxTokens,
		Temperature:        cfg.GenerationTemperature,
		MaxRetries:         cfg.MaxRetries,
		Logger:             logger.With("provider", backend),
	}

	switch backend {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIURL, opts), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicKey, opts), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL, opts), nil
	case "cohere":
		return NewCohereProvider(cfg.CohereKey, cfg.CohereURL, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, backend)
	}
}

// NewGenerationProvider builds the generation backend and selects its model.
func NewGenerationProvider(cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	p, err := New(cfg.GenerationBackend, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	p.SetGenerationModel(cfg.GenerationModelID)
	return p, nil
}

// NewEmbeddingProvider builds the embedding backend and selects its model.
func NewEmbeddingProvider(cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	p, err := New(cfg.EmbeddingBackend, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	p.SetEmbeddingModel(cfg.EmbeddingModelID, cfg.EmbeddingModelSize)
	return p, nil
}
