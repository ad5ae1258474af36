// Package chunker splits text into overlapping chunks measured in runes.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	StrategyRecursive = "recursive"
	StrategyFixed     = "fixed"
	StrategySentence  = "sentence"
)

// ValidStrategy reports whether s names a strategy. The empty string selects
// the recursive default.
func ValidStrategy(s string) bool {
	switch s {
	case "", StrategyRecursive, StrategyFixed, StrategySentence:
		return true
	}
	return false
}

type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	ChunkSize    int    // target chunk size in characters
	ChunkOverlap int    // overlap between chunks
	Strategy     string // "recursive" (default), "fixed", "sentence"
}

// TextChunk is one piece of the input. Start and End are byte offsets.
type TextChunk struct {
	Content string
	Index   int
	Start   int
	End     int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    100,
		ChunkOverlap: 20,
		Strategy:     StrategyRecursive,
	}
}

type defaultChunker struct{}

func New() Chunker {
	return &defaultChunker{}
}

func (c *defaultChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	switch opts.Strategy {
	case StrategySentence:
		return chunkBySentence(text, opts)
	case StrategyFixed:
		return chunkFixed(text, opts)
	default:
		return chunkRecursive(text, opts)
	}
}

func chunkFixed(text string, opts ChunkOptions) []TextChunk {
	var parts []string
	runes := []rune(text)
	step := opts.ChunkSize - opts.ChunkOverlap

	for start := 0; start < len(runes); start += step {
		end := min(start+opts.ChunkSize, len(runes))
		if content := string(runes[start:end]); strings.TrimSpace(content) != "" {
			parts = append(parts, content)
		}
		if end == len(runes) {
			break
		}
	}

	return locate(text, parts)
}

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

func chunkRecursive(text string, opts ChunkOptions) []TextChunk {
	s := recursiveSplitter{size: opts.ChunkSize, overlap: opts.ChunkOverlap}
	return locate(text, s.split(text, defaultSeparators))
}

// recursiveSplitter splits on the coarsest separator present in the text,
// recursing into pieces that are still too long, then greedily merges
// adjacent pieces up to size while carrying up to overlap runes forward.
// Separators stay attached to the start of the piece that follows them.
type recursiveSplitter struct {
	size    int
	overlap int
}

func (s recursiveSplitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var finer []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			finer = separators[i+1:]
			break
		}
	}

	var out, small []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if utf8.RuneCountInString(piece) < s.size {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small)...)
			small = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, finer)...)
		}
	}
	if len(small) > 0 {
		out = append(out, s.merge(small)...)
	}
	return out
}

func (s recursiveSplitter) merge(pieces []string) []string {
	var docs, current []string
	total := 0

	flush := func() {
		if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
			docs = append(docs, doc)
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.size && len(current) > 0 {
			flush()
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	flush()
	return docs
}

func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func chunkBySentence(text string, opts ChunkOptions) []TextChunk {
	var parts []string
	var current strings.Builder

	for _, s := range splitSentences(text) {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+s) > opts.ChunkSize {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, strings.TrimSpace(current.String()))
	}

	return locate(text, parts)
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// locate finds each part in text, searching forward from the previous
// match so overlapping chunks resolve to their own occurrence.
func locate(text string, parts []string) []TextChunk {
	chunks := make([]TextChunk, 0, len(parts))
	cursor := 0
	for i, p := range parts {
		start := -1
		if cursor <= len(text) {
			if at := strings.Index(text[cursor:], p); at >= 0 {
				start = cursor + at
			}
		}
		if start < 0 {
			start = strings.Index(text, p)
		}

		c := TextChunk{Content: p, Index: i, Start: start, End: -1}
		if start >= 0 {
			c.End = start + len(p)
			cursor = start + 1
		}
		chunks = append(chunks, c)
	}
	return chunks
}
