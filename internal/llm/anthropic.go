package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider is generation-only. EmbedText always returns nil.
type AnthropicProvider struct {
	models
	client     anthropic.Client
	configured bool
	opts       Options
}

func NewAnthropicProvider(apiKey string, opts Options, reqOpts ...option.RequestOption) *AnthropicProvider {
	reqOpts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)
	return &AnthropicProvider{
		client:     anthropic.NewClient(reqOpts...),
		configured: apiKey != "",
		opts:       opts,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ConstructPrompt(prompt string, role Role) Message {
	return Message{Role: string(role), Content: ProcessText(prompt, p.opts.InputMaxCharacters)}
}

func (p *AnthropicProvider) EmbedText(_ context.Context, _ string, _ Purpose) []float32 {
	p.opts.logger().Error("anthropic does not provide embeddings")
	return nil
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) string {
	log := p.opts.logger()
	model := p.generation()
	if !p.configured || model == "" {
		log.Error("anthropic generation not configured", "model", model)
		return ""
	}
	g := p.opts.generateOptions(opts)

	var system []string
	var msgs []anthropic.MessageParam
	for _, m := range history {
		switch normalizeRole(m.Role) {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(ProcessText(prompt, p.opts.InputMaxCharacters))))

	maxTokens := int64(g.maxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(g.temperature),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	start := time.Now()
	var resp *anthropic.Message
	err := withRetry(ctx, p.opts.MaxRetries, func() error {
		var err error
		resp, err = p.client.Messages.New(ctx, params)
		return err
	})
	if err != nil {
		log.Error("anthropic generation failed", "model", model, "error", err)
		return ""
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	in, out := int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens)
	log.Debug("anthropic generation",
		"model", model,
		"input_tokens", in,
		"output_tokens", out,
		"cost_usd", CalculateCost(model, in, out),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return content.String()
}
