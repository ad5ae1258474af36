package rag

import (
	"context"
	"io"
	"log/slog"

	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

const testDim = 8

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordingStore counts writes on top of an in-memory store.
type recordingStore struct {
	*vectorstore.MemoryStore
	inserts int
	resets  []bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: vectorstore.NewMemoryStore(vectorstore.DistanceCosine)}
}

func (s *recordingStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	s.resets = append(s.resets, reset)
	return s.MemoryStore.CreateCollection(ctx, name, dim, reset)
}

func (s *recordingStore) InsertMany(ctx context.Context, name string, texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error {
	s.inserts++
	return s.MemoryStore.InsertMany(ctx, name, texts, metadatas, vectors, ids)
}

func (s *recordingStore) count(name string) int64 {
	info, err := s.CollectionInfo(context.Background(), name)
	if err != nil {
		return -1
	}
	return info.PointsCount
}

type pagedSource struct {
	pages [][]models.DataChunk
	calls int
}

func (s *pagedSource) ListChunks(_ context.Context, _ string, page int) ([]models.DataChunk, error) {
	s.calls++
	if page < 1 || page > len(s.pages) {
		return nil, nil
	}
	return s.pages[page-1], nil
}

func chunks(texts ...string) []models.DataChunk {
	out := make([]models.DataChunk, len(texts))
	for i, text := range texts {
		out[i] = models.DataChunk{Text: text, Order: i + 1}
	}
	return out
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}
