package rag

import (
	"context"
	"log/slog"
	"slices"

	"github.com/nikhilbhutani/ragguard/internal/audit"
	"github.com/nikhilbhutani/ragguard/internal/guardrails"
	"github.com/nikhilbhutani/ragguard/internal/llm"
)

type Outcome string

const (
	OutcomeAnswered         Outcome = "answered"
	OutcomeNoContext        Outcome = "no_context"
	OutcomeRetrievalFailed  Outcome = "retrieval_failed"
	OutcomeGenerationFailed Outcome = "generation_failed"
	OutcomeRefused          Outcome = "refused"
)

// PromptBundle is the result of answering a question. FullPrompt and
// ChatHistory are empty when nothing was sent to the model.
type PromptBundle struct {
	Answer      string        `json:"answer"`
	FullPrompt  string        `json:"full_prompt"`
	ChatHistory []llm.Message `json:"chat_history"`
	Outcome     Outcome       `json:"-"`
}

// OutputChecker screens generated text. guardrails.Pipeline implements it.
type OutputChecker interface {
	CheckOutput(ctx context.Context, text string) (*guardrails.GuardrailResult, error)
}

// AuditSink receives refused answers. audit.Recorder implements it.
type AuditSink interface {
	Record(ctx context.Context, e audit.Event) error
}

type AnswererOption func(*Answerer)

func WithAudit(sink AuditSink) AnswererOption {
	return func(a *Answerer) { a.audit = sink }
}

// Answerer runs retrieve, assemble, generate and screen for one question.
type Answerer struct {
	retriever *Retriever
	assembler *PromptAssembler
	generator llm.Provider
	screen    OutputChecker
	audit     AuditSink
	logger    *slog.Logger
}

func NewAnswerer(retriever *Retriever, assembler *PromptAssembler, generator llm.Provider, screen OutputChecker, logger *slog.Logger, opts ...AnswererOption) *Answerer {
	if screen == nil {
		p := guardrails.NewPipeline()
		p.AddOutputGuardrail(guardrails.NewOutputScreen())
		screen = p
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Answerer{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		screen:    screen,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer never returns an answer the output screen flags; such answers are
// replaced by guardrails.RefusalMessage.
func (a *Answerer) Answer(ctx context.Context, projectID, query string, limit int) *PromptBundle {
	docs, err := a.retriever.Retrieve(ctx, projectID, query, limit)
	if err != nil {
		a.logger.Error("retrieval failed", "project_id", projectID, "error", err)
		return &PromptBundle{Outcome: OutcomeRetrievalFailed}
	}
	if len(docs) == 0 {
		return &PromptBundle{Outcome: OutcomeNoContext}
	}

	prompt := a.assembler.Assemble(docs, query)
	fullPrompt := prompt.Full()
	history := []llm.Message{a.generator.ConstructPrompt(prompt.System, llm.RoleSystem)}

	// The returned history also carries the user turn that was sent.
	bundle := &PromptBundle{
		FullPrompt:  fullPrompt,
		ChatHistory: append(slices.Clone(history), a.generator.ConstructPrompt(fullPrompt, llm.RoleUser)),
	}

	answer := a.generator.GenerateText(ctx, fullPrompt, history)
	if answer == "" {
		a.logger.Error("generation returned no answer", "project_id", projectID)
		bundle.Outcome = OutcomeGenerationFailed
		return bundle
	}

	event := audit.Event{
		ProjectID: projectID,
		Kind:      audit.KindOutputRefused,
		Query:     query,
		Answer:    answer,
		Prompt:    fullPrompt,
	}
	// The built-in screen always runs; the injected checker can only add
	// refusals.
	if phrase, flagged := guardrails.Screen(answer); flagged {
		a.logger.Warn("security violation detected in LLM output",
			"project_id", projectID,
			"phrase", phrase,
		)
		event.Reason = "output contains deny-listed phrase"
		event.Flags = []string{phrase}
		return a.refuse(ctx, bundle, event)
	}

	result, err := a.screen.CheckOutput(ctx, answer)
	switch {
	case err != nil:
		a.logger.Warn("output screen failed, refusing answer", "project_id", projectID, "error", err)
		event.Reason = "output screen failed: " + err.Error()
	case !result.Allowed:
		a.logger.Warn("security violation detected in LLM output",
			"project_id", projectID,
			"reason", result.Reason,
			"flags", result.Flags,
		)
		event.Reason = result.Reason
		event.Flags = result.Flags
	default:
		bundle.Answer = answer
		bundle.Outcome = OutcomeAnswered
		return bundle
	}
	return a.refuse(ctx, bundle, event)
}

func (a *Answerer) refuse(ctx context.Context, bundle *PromptBundle, event audit.Event) *PromptBundle {
	if a.audit != nil {
		if err := a.audit.Record(ctx, event); err != nil {
			a.logger.Error("record security event failed", "project_id", event.ProjectID, "error", err)
		}
	}
	bundle.Answer = guardrails.RefusalMessage
	bundle.Outcome = OutcomeRefused
	return bundle
}
