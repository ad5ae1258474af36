// Package llmtest provides a configurable llm.Provider for tests.
//
// By default the fake embeds every text into a deterministic unit vector
// derived from an FNV hash of the text, and generates a fixed answer.
// Behaviour can be overridden through the function fields:
//
//	p := llmtest.NewProvider(8)
//	p.EmbedFunc = func(ctx context.Context, text string, purpose llm.Purpose) []float32 {
//		return nil // simulate a provider failure
//	}
package llmtest

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/nikhilbhutani/ragguard/internal/llm"
)

type EmbedCall struct {
	Text    string
	Purpose llm.Purpose
}

type GenerateCall struct {
	Prompt  string
	History []llm.Message
}

type Provider struct {
	EmbedFunc    func(ctx context.Context, text string, purpose llm.Purpose) []float32
	GenerateFunc func(ctx context.Context, prompt string, history []llm.Message) string

	// Answer is returned by GenerateText when GenerateFunc is nil.
	Answer string

	mu              sync.Mutex
	dim             int
	embedCalls      []EmbedCall
	generateCalls   []GenerateCall
	generationModel string
	embeddingModel  string
}

func NewProvider(dim int) *Provider {
	return &Provider{dim: dim, Answer: "fake answer"}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) SetGenerationModel(modelID string) {
	p.mu.Lock()
	p.generationModel = modelID
	p.mu.Unlock()
}

func (p *Provider) SetEmbeddingModel(modelID string, size int) {
	p.mu.Lock()
	p.embeddingModel = modelID
	p.dim = size
	p.mu.Unlock()
}

func (p *Provider) EmbeddingSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *Provider) ConstructPrompt(prompt string, role llm.Role) llm.Message {
	return llm.Message{Role: string(role), Content: prompt}
}

func (p *Provider) EmbedText(ctx context.Context, text string, purpose llm.Purpose) []float32 {
	p.mu.Lock()
	p.embedCalls = append(p.embedCalls, EmbedCall{Text: text, Purpose: purpose})
	dim := p.dim
	p.mu.Unlock()

	if p.EmbedFunc != nil {
		return p.EmbedFunc(ctx, text, purpose)
	}
	return Vector(text, dim)
}

func (p *Provider) GenerateText(ctx context.Context, prompt string, history []llm.Message, _ ...llm.GenerateOption) string {
	p.mu.Lock()
	p.generateCalls = append(p.generateCalls, GenerateCall{Prompt: prompt, History: append([]llm.Message(nil), history...)})
	p.mu.Unlock()

	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, prompt, history)
	}
	return p.Answer
}

func (p *Provider) EmbedCalls() []EmbedCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]EmbedCall(nil), p.embedCalls...)
}

func (p *Provider) GenerateCalls() []GenerateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]GenerateCall(nil), p.generateCalls...)
}

// Vector returns a deterministic unit vector for text.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	var sum float64
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000.0 + 0.001
		sum += float64(vec[i] * vec[i])
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
