package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrUnknownProvider is returned by the factory for a backend name it does
// not know how to build.
var ErrUnknownProvider = errors.New("unknown llm provider")

// Purpose tells the backend whether a text is being embedded for storage or
// for lookup. Backends that distinguish the two (Cohere) map it to their own
// input type; the others ignore it.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeQuery    Purpose = "query"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged chat message in the shape the owning provider
// expects. Role holds the provider's own role name.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the single surface the rest of the service uses for both
// embedding and generation. EmbedText returns nil and GenerateText returns ""
// when the provider is unconfigured or the backend call fails; failures are
// logged here and never surface as errors.
type Provider interface {
	Name() string
	SetGenerationModel(modelID string)
	SetEmbeddingModel(modelID string, size int)
	EmbeddingSize() int
	EmbedText(ctx context.Context, text string, purpose Purpose) []float32
	GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) string
	ConstructPrompt(prompt string, role Role) Message
}

// Options carries the settings shared by every backend.
type Options struct {
	InputMaxCharacters int
	MaxTokens          int
	Temperature        float64
	MaxRetries         int
	Logger             *slog.Logger
}

type GenerateOption func(*generateOptions)

type generateOptions struct {
	maxTokens   int
	temperature float64
}

func WithMaxTokens(n int) GenerateOption {
	return func(o *generateOptions) { o.maxTokens = n }
}

func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// models holds the mutable model selection common to all providers.
type models struct {
	mu              sync.RWMutex
	generationModel string
	embeddingModel  string
	embeddingSize   int
}

func (m *models) SetGenerationModel(modelID string) {
	m.mu.Lock()
	m.generationModel = modelID
	m.mu.Unlock()
}

func (m *models) SetEmbeddingModel(modelID string, size int) {
	m.mu.Lock()
	m.embeddingModel = modelID
	m.embeddingSize = size
	m.mu.Unlock()
}

func (m *models) EmbeddingSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.embeddingSize
}

func (m *models) generation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generationModel
}

func (m *models) embedding() (string, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.embeddingModel, m.embeddingSize
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) generateOptions(opts []GenerateOption) generateOptions {
	g := generateOptions{maxTokens: o.MaxTokens, temperature: o.Temperature}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}
