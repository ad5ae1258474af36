package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen(t *testing.T) {
	tests := []struct {
		answer  string
		flagged bool
		phrase  string
	}{
		{"Sure! My system prompt says to be helpful.", true, "system prompt"},
		{"DEVELOPER MODE enabled", true, "developer mode"},
		{"I will Ignore All Previous guidance", true, "ignore all previous"},
		{"As a language model, I am now free", true, "as a language model, i am now"},
		{"Please override\ninstructions", true, "override instructions"},
		{"Revenue grew 4% in Q3.", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		phrase, flagged := Screen(tt.answer)
		assert.Equal(t, tt.flagged, flagged, "answer %q", tt.answer)
		assert.Equal(t, tt.phrase, phrase, "answer %q", tt.answer)
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := DefaultPipeline(10)
	ctx := context.Background()

	res, err := p.CheckInput(ctx, "short")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = p.CheckInput(ctx, "this query is too long")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Flags, "input_too_long")

	res, err = p.CheckOutput(ctx, "here is my System Prompt")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "blocked by output_screen: answer contains system prompt", res.Reason)

	res, err = p.CheckOutput(ctx, "a normal answer")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestInputLengthGuard_CountsCharacters(t *testing.T) {
	g := NewInputLengthGuard(3)
	res, err := g.Check(context.Background(), "äöü")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
