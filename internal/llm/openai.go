package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to OpenAI or any endpoint that speaks its API
// (Ollama's /v1, vLLM, LM Studio) when a base URL is given.
type OpenAIProvider struct {
	models
	client *openai.Client
	opts   Options
}

func NewOpenAIProvider(apiKey, baseURL string, opts Options) *OpenAIProvider {
	p := &OpenAIProvider{opts: opts}
	if apiKey == "" && baseURL == "" {
		return p
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	p.client = openai.NewClientWithConfig(cfg)
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) ConstructPrompt(prompt string, role Role) Message {
	return Message{Role: string(role), Content: ProcessText(prompt, p.opts.InputMaxCharacters)}
}

func (p *OpenAIProvider) EmbedText(ctx context.Context, text string, _ Purpose) []float32 {
	log := p.opts.logger()
	model, size := p.embedding()
	if p.client == nil || model == "" {
		log.Error("openai embedding not configured", "model", model)
		return nil
	}

	req := openai.EmbeddingRequest{
		Input: []string{ProcessText(text, p.opts.InputMaxCharacters)},
		Model: openai.EmbeddingModel(model),
	}

	var resp openai.EmbeddingResponse
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		var err error
		resp, err = p.client.CreateEmbeddings(ctx, req)
		return err
	})
	if err != nil {
		log.Error("openai embedding failed", "model", model, "error", err)
		return nil
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		log.Error("openai embedding returned no vector", "model", model)
		return nil
	}

	vec := resp.Data[0].Embedding
	if size > 0 && len(vec) != size {
		log.Error("openai embedding dimension mismatch", "model", model, "want", size, "got", len(vec))
		return nil
	}

	log.Debug("openai embedding",
		"model", model,
		"tokens", resp.Usage.TotalTokens,
		"cost_usd", CalculateCost(model, resp.Usage.PromptTokens, 0),
	)
	return vec
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) string {
	log := p.opts.logger()
	model := p.generation()
	if p.client == nil || model == "" {
		log.Error("openai generation not configured", "model", model)
		return ""
	}
	g := p.opts.generateOptions(opts)

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(normalizeRole(m.Role)), Content: m.Content})
	}
	user := p.ConstructPrompt(prompt, RoleUser)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: user.Role, Content: user.Content})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: float32(g.temperature),
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		var err error
		resp, err = p.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		log.Error("openai generation failed", "model", model, "error", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		log.Error("openai generation returned no choices", "model", model)
		return ""
	}

	log.Debug("openai generation",
		"model", model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"cost_usd", CalculateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content
}
