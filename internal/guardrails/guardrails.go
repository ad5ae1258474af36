package guardrails

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// GuardrailResult holds the outcome of a safety check.
type GuardrailResult struct {
	Allowed bool     `json:"allowed"`
	Flags   []string `json:"flags,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// Guardrail is a check that can be applied to input or output.
type Guardrail interface {
	Check(ctx context.Context, text string) (*GuardrailResult, error)
	Name() string
}

// Pipeline chains multiple guardrails together.
type Pipeline struct {
	inputGuardrails  []Guardrail
	outputGuardrails []Guardrail
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) AddInputGuardrail(g Guardrail) {
	p.inputGuardrails = append(p.inputGuardrails, g)
}

func (p *Pipeline) AddOutputGuardrail(g Guardrail) {
	p.outputGuardrails = append(p.outputGuardrails, g)
}

// CheckInput runs all input guardrails against the text.
func (p *Pipeline) CheckInput(ctx context.Context, text string) (*GuardrailResult, error) {
	return p.runChecks(ctx, text, p.inputGuardrails)
}

// CheckOutput runs all output guardrails against the text.
func (p *Pipeline) CheckOutput(ctx context.Context, text string) (*GuardrailResult, error) {
	return p.runChecks(ctx, text, p.outputGuardrails)
}

func (p *Pipeline) runChecks(ctx context.Context, text string, guards []Guardrail) (*GuardrailResult, error) {
	combined := &GuardrailResult{Allowed: true}

	for _, g := range guards {
		result, err := g.Check(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("guardrail %s: %w", g.Name(), err)
		}
		if !result.Allowed && combined.Allowed {
			combined.Allowed = false
			combined.Reason = fmt.Sprintf("blocked by %s: %s", g.Name(), result.Reason)
		}
		combined.Flags = append(combined.Flags, result.Flags...)
	}

	return combined, nil
}

// DefaultPipeline bounds query length on the way in and screens every
// generated answer on the way out.
func DefaultPipeline(maxQueryChars int) *Pipeline {
	p := NewPipeline()
	p.AddInputGuardrail(NewInputLengthGuard(maxQueryChars))
	p.AddOutputGuardrail(NewOutputScreen())
	return p
}

// InputLengthGuard rejects inputs that are too long.
type InputLengthGuard struct {
	maxLength int
}

func NewInputLengthGuard(maxLen int) *InputLengthGuard {
	return &InputLengthGuard{maxLength: maxLen}
}

func (g *InputLengthGuard) Name() string { return "input_length" }

func (g *InputLengthGuard) Check(_ context.Context, text string) (*GuardrailResult, error) {
	if g.maxLength > 0 && utf8.RuneCountInString(text) > g.maxLength {
		return &GuardrailResult{
			Allowed: false,
			Reason:  fmt.Sprintf("input exceeds %d characters", g.maxLength),
			Flags:   []string{"input_too_long"},
		}, nil
	}
	return &GuardrailResult{Allowed: true}, nil
}
