package templates

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"ar", "en"}, r.Languages())

	p := NewParser(r, "en", "en")
	for _, key := range []string{"system_prompt", "document_prompt", "footer_prompt"} {
		_, ok := p.Template("rag", key, map[string]string{"doc_number": "1", "chunk_text": "x", "query": "q"})
		assert.True(t, ok, key)
	}

	doc, ok := p.Template("rag", "document_prompt", map[string]string{"doc_number": "2", "chunk_text": "body"})
	require.True(t, ok)
	assert.Equal(t, "<document id='2'>\nbody\n</document>", doc)
}

func TestParser_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/en.yaml":   {Data: []byte("rag:\n  greeting: \"hello {{name}}\"\n  only_en: \"en text\"\n")},
		"loc/fr.yaml":   {Data: []byte("rag:\n  greeting: \"bonjour {{name}}\"\n")},
		"loc/notes.txt": {Data: []byte("ignored")},
	}
	r, err := LoadRegistry(fsys, "loc")
	require.NoError(t, err)

	t.Run("primary language wins", func(t *testing.T) {
		p := NewParser(r, "fr", "en")
		got, ok := p.Template("rag", "greeting", map[string]string{"name": "Ana"})
		require.True(t, ok)
		assert.Equal(t, "bonjour Ana", got)
	})

	t.Run("missing key falls back to default language", func(t *testing.T) {
		p := NewParser(r, "fr", "en")
		got, ok := p.Template("rag", "only_en", nil)
		require.True(t, ok)
		assert.Equal(t, "en text", got)
	})

	t.Run("unknown language uses default", func(t *testing.T) {
		p := NewParser(r, "de", "en")
		assert.Equal(t, "en", p.Language())
	})

	t.Run("unknown key is absent", func(t *testing.T) {
		p := NewParser(r, "en", "en")
		_, ok := p.Template("rag", "nope", nil)
		assert.False(t, ok)
		_, ok = p.Template("", "greeting", nil)
		assert.False(t, ok)
	})

	t.Run("missing variable is absent", func(t *testing.T) {
		p := NewParser(r, "en", "en")
		_, ok := p.Template("rag", "greeting", nil)
		assert.False(t, ok)
	})
}

func TestRender(t *testing.T) {
	out, err := Render("Q: {{query}} / {{query}}", map[string]string{"query": "{{secret}}"})
	require.NoError(t, err)
	assert.Equal(t, "Q: {{secret}} / {{secret}}", out)

	_, err = Render("{{a}} {{b}}", map[string]string{"a": "1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "b"))

	assert.Equal(t, []string{"a", "b"}, ExtractVariables("{{a}}{{b}}{{a}}"))
}
