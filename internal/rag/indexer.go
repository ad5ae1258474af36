package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/nikhilbhutani/ragguard/internal/guardrails"
	"github.com/nikhilbhutani/ragguard/internal/llm"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

var (
	ErrEmptyEmbedding = errors.New("embedding provider returned no vector")
	ErrAlignment      = errors.New("texts, metadatas, vectors and ids are not aligned")
)

// DefaultEmbedInterval is the minimum gap between two embedding calls.
const DefaultEmbedInterval = 100 * time.Millisecond

// Indexer sanitizes chunks, embeds them and writes them to the project's
// collection. Indexing for one project is serialized through its Locker.
type Indexer struct {
	embedder       llm.Provider
	store          vectorstore.VectorStore
	locker         Locker
	limiter        *rate.Limiter
	alwaysRecreate bool
	logger         *slog.Logger
}

type IndexerOption func(*Indexer)

func WithLocker(l Locker) IndexerOption {
	return func(ix *Indexer) { ix.locker = l }
}

// WithEmbedInterval paces embedding calls. Zero disables pacing.
func WithEmbedInterval(d time.Duration) IndexerOption {
	return func(ix *Indexer) { ix.limiter = newPacer(d) }
}

// WithAlwaysRecreate drops the collection on every index call regardless of
// the caller's reset flag. Push indexes page by page, so with this set a
// multi-page project keeps only its last page.
func WithAlwaysRecreate(on bool) IndexerOption {
	return func(ix *Indexer) { ix.alwaysRecreate = on }
}

func WithLogger(l *slog.Logger) IndexerOption {
	return func(ix *Indexer) { ix.logger = l }
}

func NewIndexer(embedder llm.Provider, store vectorstore.VectorStore, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		embedder: embedder,
		store:    store,
		locker:   NewKeyedMutex(),
		limiter:  newPacer(DefaultEmbedInterval),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func newPacer(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Index embeds chunks and inserts them under recordIDs. Each chunk's
// metadata gains a doc_name when it has none. Nothing is inserted unless
// every chunk produced a vector of the expected size.
func (ix *Indexer) Index(ctx context.Context, projectID string, chunks []models.DataChunk, recordIDs []int64, reset bool) (int, error) {
	name := CollectionName(projectID)
	unlock, err := ix.locker.Lock(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lock %s: %w", name, err)
	}
	defer unlock()

	return ix.index(ctx, name, chunks, recordIDs, reset)
}

func (ix *Indexer) index(ctx context.Context, name string, chunks []models.DataChunk, recordIDs []int64, reset bool) (int, error) {
	if len(chunks) != len(recordIDs) {
		return 0, fmt.Errorf("%w: %d chunks, %d ids", ErrAlignment, len(chunks), len(recordIDs))
	}

	texts := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		texts[i] = guardrails.Sanitize(chunks[i].Text)
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		meta := chunks[i].Metadata
		if docName, ok := meta["doc_name"].(string); !ok || docName == "" {
			meta["doc_name"] = fallbackDocName(meta)
		}
		metadatas[i] = meta
	}

	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if err := ix.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("pace embedding: %w", err)
		}
		vec := ix.embedder.EmbedText(ctx, text, llm.PurposeDocument)
		if len(vec) == 0 {
			return 0, fmt.Errorf("embed chunk %d of %d: %w", i+1, len(texts), ErrEmptyEmbedding)
		}
		vectors = append(vectors, vec)
	}

	dim := ix.embedder.EmbeddingSize()
	if dim <= 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := checkAlignment(texts, metadatas, vectors, recordIDs, dim); err != nil {
		return 0, err
	}

	reset = reset || ix.alwaysRecreate
	if len(texts) == 0 && !reset {
		return 0, nil
	}
	if dim <= 0 {
		return 0, fmt.Errorf("create %s: %w", name, vectorstore.ErrInvalidDimension)
	}

	created, err := ix.store.CreateCollection(ctx, name, dim, reset)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	if len(texts) > 0 {
		if err := ix.store.InsertMany(ctx, name, texts, metadatas, vectors, recordIDs); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	ix.logger.Info("chunks indexed",
		"collection", name,
		"count", len(texts),
		"created", created,
		"reset", reset,
	)
	return len(texts), nil
}

func checkAlignment(texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64, dim int) error {
	n := len(texts)
	if len(metadatas) != n || len(vectors) != n || len(ids) != n {
		return fmt.Errorf("%w: texts=%d metadatas=%d vectors=%d ids=%d",
			ErrAlignment, n, len(metadatas), len(vectors), len(ids))
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrAlignment, i, len(vec), dim)
		}
	}
	return nil
}

// fallbackDocName names a chunk after its source file, if known.
func fallbackDocName(meta map[string]any) string {
	if src, ok := meta["source"].(string); ok && src != "" {
		return filepath.Base(src)
	}
	return models.UnknownDocName
}
