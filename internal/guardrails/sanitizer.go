package guardrails

import "strings"

// RedactionMarker replaces every deny-listed phrase found in a chunk.
const RedactionMarker = "[cleaned]"

// ChunkDenyList holds the instruction-like phrases stripped from document
// chunks before they are embedded or stored.
var ChunkDenyList = []string{
	"ignore all previous instructions",
	"system prompt:",
	"you are now a",
	"assistant instructions",
}

var chunkPhrases = newPhraseSet(ChunkDenyList...)

// Sanitize lower-cases text, redacts deny-listed phrases, then collapses
// whitespace runs to a single space and trims the result. It is a heuristic
// filter: paraphrased or encoded instructions pass through, which is why
// generated answers are screened separately.
func Sanitize(text string) string {
	lower := strings.ToLower(text)
	return collapseWhitespace(chunkPhrases.replace(lower, RedactionMarker))
}

// SanitizeAll applies Sanitize to every text, returning a new slice.
func SanitizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Sanitize(t)
	}
	return out
}
