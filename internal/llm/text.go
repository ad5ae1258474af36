package llm

import (
	"context"
	"strings"
	"time"
)

// ProcessText keeps the first maxChars characters of text and trims the
// surrounding whitespace. A non-positive maxChars disables truncation.
func ProcessText(text string, maxChars int) string {
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return strings.TrimSpace(text)
}

// normalizeRole maps provider specific role names back to the generic ones.
func normalizeRole(role string) Role {
	switch strings.ToLower(role) {
	case "system":
		return RoleSystem
	case "assistant", "chatbot":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// withRetry runs fn up to attempts+1 times with quadratic backoff.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
