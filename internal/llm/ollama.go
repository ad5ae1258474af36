package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider uses Ollama's native chat and embed endpoints.
type OllamaProvider struct {
	models
	baseURL    string
	httpClient *http.Client
	opts       Options
}

func NewOllamaProvider(baseURL string, opts Options) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		opts: opts,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) ConstructPrompt(prompt string, role Role) Message {
	return Message{Role: string(role), Content: ProcessText(prompt, p.opts.InputMaxCharacters)}
}

type ollamaChatReq struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResp struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) string {
	log := p.opts.logger()
	model := p.generation()
	if p.baseURL == "" || model == "" {
		log.Error("ollama generation not configured", "model", model)
		return ""
	}
	g := p.opts.generateOptions(opts)

	msgs := make([]ollamaMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, ollamaMessage{Role: string(normalizeRole(m.Role)), Content: m.Content})
	}
	user := p.ConstructPrompt(prompt, RoleUser)
	msgs = append(msgs, ollamaMessage{Role: user.Role, Content: user.Content})

	req := ollamaChatReq{
		Model:    model,
		Messages: msgs,
		Options:  &ollamaOptions{Temperature: g.temperature, NumPredict: g.maxTokens},
	}

	var resp ollamaChatResp
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		return p.post(ctx, "/api/chat", req, &resp)
	})
	if err != nil {
		log.Error("ollama generation failed", "model", model, "error", err)
		return ""
	}

	log.Debug("ollama generation",
		"model", model,
		"input_tokens", resp.PromptEvalCount,
		"output_tokens", resp.EvalCount,
	)
	return resp.Message.Content
}

func (p *OllamaProvider) EmbedText(ctx context.Context, text string, _ Purpose) []float32 {
	log := p.opts.logger()
	model, size := p.embedding()
	if p.baseURL == "" || model == "" {
		log.Error("ollama embedding not configured", "model", model)
		return nil
	}

	req := ollamaEmbedReq{Model: model, Input: ProcessText(text, p.opts.InputMaxCharacters)}

	var resp ollamaEmbedResp
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		return p.post(ctx, "/api/embed", req, &resp)
	})
	if err != nil {
		log.Error("ollama embedding failed", "model", model, "error", err)
		return nil
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		log.Error("ollama embedding returned no vector", "model", model)
		return nil
	}
	if size > 0 && len(resp.Embeddings[0]) != size {
		log.Error("ollama embedding dimension mismatch", "model", model, "want", size, "got", len(resp.Embeddings[0]))
		return nil
	}
	return resp.Embeddings[0]
}

func (p *OllamaProvider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ollama marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama %s: status %d: %s", path, resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama decode: %w", err)
	}
	return nil
}
