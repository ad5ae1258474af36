package guardrails

import (
	"context"
	"strings"
)

// RefusalMessage replaces any generated answer the output screen flags.
const RefusalMessage = "I'm sorry, but I cannot fulfill this request due to security policy violations."

// OutputDenyList holds phrases that suggest a generated answer is echoing
// injected instructions or leaking the system prompt.
var OutputDenyList = []string{
	"ignore all previous",
	"system prompt",
	"developer mode",
	"override instructions",
	"as a language model, i am now",
}

var outputPhrases = newPhraseSet(OutputDenyList...)

// Screen reports the first deny-listed phrase present in answer, matched
// case-insensitively.
func Screen(answer string) (string, bool) {
	return outputPhrases.first(strings.ToLower(answer))
}

// OutputScreen is the Guardrail form of Screen.
type OutputScreen struct{}

func NewOutputScreen() *OutputScreen { return &OutputScreen{} }

func (s *OutputScreen) Name() string { return "output_screen" }

func (s *OutputScreen) Check(_ context.Context, text string) (*GuardrailResult, error) {
	phrase, flagged := Screen(text)
	if !flagged {
		return &GuardrailResult{Allowed: true}, nil
	}
	return &GuardrailResult{
		Allowed: false,
		Reason:  "answer contains " + phrase,
		Flags:   []string{"injection_detected"},
	}, nil
}
