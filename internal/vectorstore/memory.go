package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

type memoryRecord struct {
	id       int64
	text     string
	metadata map[string]any
	vector   []float32
}

type memoryCollection struct {
	dim     int
	records []memoryRecord
	byID    map[int64]int
}

// MemoryStore is an in-process vector store using brute-force similarity.
// Inserting an existing id replaces the record.
type MemoryStore struct {
	mu          sync.RWMutex
	distance    Distance
	collections map[string]*memoryCollection
}

func NewMemoryStore(distance Distance) *MemoryStore {
	if distance == "" {
		distance = DistanceCosine
	}
	return &MemoryStore{distance: distance, collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, dim int, reset bool) (bool, error) {
	if dim <= 0 {
		return false, ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if reset {
		delete(s.collections, name)
	}
	if _, ok := s.collections[name]; ok {
		return false, nil
	}
	s.collections[name] = &memoryCollection{dim: dim, byID: make(map[int64]int)}
	return true, nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return ErrCollectionNotFound
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) CollectionInfo(_ context.Context, name string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return &CollectionInfo{
		Name:        name,
		VectorSize:  c.dim,
		Distance:    s.distance,
		PointsCount: int64(len(c.records)),
		Status:      "green",
	}, nil
}

func (s *MemoryStore) InsertMany(_ context.Context, name string, texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error {
	if err := checkBatch(texts, metadatas, vectors, ids); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return ErrCollectionNotFound
	}
	for i, v := range vectors {
		if len(v) != c.dim {
			return fmt.Errorf("%w: record %d has %d, collection has %d", ErrInvalidDimension, ids[i], len(v), c.dim)
		}
	}
	for i := range texts {
		rec := memoryRecord{id: ids[i], text: texts[i], metadata: metadatas[i], vector: vectors[i]}
		if pos, ok := c.byID[ids[i]]; ok {
			c.records[pos] = rec
			continue
		}
		c.byID[ids[i]] = len(c.records)
		c.records = append(c.records, rec)
	}
	return nil
}

func (s *MemoryStore) SearchByVector(_ context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if len(vector) != c.dim {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", ErrInvalidDimension, len(vector), c.dim)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(c.records))
	for i, r := range c.records {
		scores[i] = scored{idx: i, score: s.score(r.vector, vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if limit > len(scores) || limit <= 0 {
		limit = len(scores)
	}
	docs := make([]models.RetrievedDocument, 0, limit)
	for _, sc := range scores[:limit] {
		r := c.records[sc.idx]
		docs = append(docs, hit{Text: r.text, Score: sc.score, Metadata: r.metadata}.document())
	}
	return docs, nil
}

func (s *MemoryStore) score(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if s.distance == DistanceDot {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
