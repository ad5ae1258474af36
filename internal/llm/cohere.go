package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CohereProvider calls the Cohere v1 chat and embed endpoints.
type CohereProvider struct {
	models
	apiKey     string
	baseURL    string
	httpClient *http.Client
	opts       Options
}

func NewCohereProvider(apiKey, baseURL string, opts Options) *CohereProvider {
	return &CohereProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		opts: opts,
	}
}

func (p *CohereProvider) Name() string { return "cohere" }

// ConstructPrompt returns a message using Cohere's upper-case role names.
func (p *CohereProvider) ConstructPrompt(prompt string, role Role) Message {
	return Message{Role: cohereRole(role), Content: ProcessText(prompt, p.opts.InputMaxCharacters)}
}

func cohereRole(role Role) string {
	switch role {
	case RoleSystem:
		return "SYSTEM"
	case RoleAssistant:
		return "CHATBOT"
	default:
		return "USER"
	}
}

func cohereInputType(purpose Purpose) string {
	if purpose == PurposeQuery {
		return "search_query"
	}
	return "search_document"
}

type cohereChatMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereChatReq struct {
	Model       string              `json:"model"`
	Message     string              `json:"message"`
	ChatHistory []cohereChatMessage `json:"chat_history,omitempty"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type cohereChatResp struct {
	Text string `json:"text"`
}

type cohereEmbedReq struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type cohereEmbedResp struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

func (p *CohereProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) string {
	log := p.opts.logger()
	model := p.generation()
	if p.apiKey == "" || model == "" {
		log.Error("cohere generation not configured", "model", model)
		return ""
	}
	g := p.opts.generateOptions(opts)

	chat := make([]cohereChatMessage, 0, len(history))
	for _, m := range history {
		chat = append(chat, cohereChatMessage{Role: cohereRole(normalizeRole(m.Role)), Message: m.Content})
	}

	req := cohereChatReq{
		Model:       model,
		Message:     ProcessText(prompt, p.opts.InputMaxCharacters),
		ChatHistory: chat,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	var resp cohereChatResp
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		return p.post(ctx, "/chat", req, &resp)
	})
	if err != nil {
		log.Error("cohere generation failed", "model", model, "error", err)
		return ""
	}
	return resp.Text
}

func (p *CohereProvider) EmbedText(ctx context.Context, text string, purpose Purpose) []float32 {
	log := p.opts.logger()
	model, size := p.embedding()
	if p.apiKey == "" || model == "" {
		log.Error("cohere embedding not configured", "model", model)
		return nil
	}

	req := cohereEmbedReq{
		Model:          model,
		Texts:          []string{ProcessText(text, p.opts.InputMaxCharacters)},
		InputType:      cohereInputType(purpose),
		EmbeddingTypes: []string{"float"},
	}

	var resp cohereEmbedResp
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		return p.post(ctx, "/embed", req, &resp)
	})
	if err != nil {
		log.Error("cohere embedding failed", "model", model, "error", err)
		return nil
	}
	if len(resp.Embeddings.Float) == 0 || len(resp.Embeddings.Float[0]) == 0 {
		log.Error("cohere embedding returned no vector", "model", model)
		return nil
	}
	if size > 0 && len(resp.Embeddings.Float[0]) != size {
		log.Error("cohere embedding dimension mismatch", "model", model, "want", size, "got", len(resp.Embeddings.Float[0]))
		return nil
	}
	return resp.Embeddings.Float[0]
}

func (p *CohereProvider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("cohere marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cohere request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cohere %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("cohere %s: status %d: %s", path, resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cohere decode: %w", err)
	}
	return nil
}
