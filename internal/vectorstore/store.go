package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrMismatchedBatch    = errors.New("texts, metadatas, vectors and ids differ in length")
	ErrInvalidDimension   = errors.New("invalid vector dimension")
)

type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
)

func ParseDistance(s string) (Distance, error) {
	switch Distance(strings.ToLower(s)) {
	case DistanceCosine:
		return DistanceCosine, nil
	case DistanceDot:
		return DistanceDot, nil
	default:
		return "", fmt.Errorf("unsupported distance method %q", s)
	}
}

type CollectionInfo struct {
	Name        string   `json:"name"`
	VectorSize  int      `json:"vector_size"`
	Distance    Distance `json:"distance"`
	PointsCount int64    `json:"points_count"`
	Status      string   `json:"status"`
}

// VectorStore is a named-collection vector database. Search results come
// back in descending score order, already normalized into RetrievedDocument.
type VectorStore interface {
	// CreateCollection creates name with the given dimension when it does not
	// exist. With reset it drops any existing collection first. It reports
	// whether a new collection was created.
	CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
	InsertMany(ctx context.Context, name string, texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error
	SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error)
}

func checkBatch(texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error {
	n := len(texts)
	if len(metadatas) != n || len(vectors) != n || len(ids) != n {
		return fmt.Errorf("%w: texts=%d metadatas=%d vectors=%d ids=%d",
			ErrMismatchedBatch, n, len(metadatas), len(vectors), len(ids))
	}
	return nil
}

// hit is a backend search result before normalization. The document name is
// looked up on the hit itself, then in its payload, then in its metadata.
type hit struct {
	Text     string
	Score    float64
	DocName  string
	Payload  map[string]any
	Metadata map[string]any
}

func (h hit) document() models.RetrievedDocument {
	return models.RetrievedDocument{
		Text:    h.Text,
		Score:   h.Score,
		DocName: h.docName(),
	}
}

func (h hit) docName() string {
	if h.DocName != "" {
		return h.DocName
	}
	if name, ok := h.Payload["doc_name"].(string); ok && name != "" {
		return name
	}
	if name, ok := h.Metadata["doc_name"].(string); ok && name != "" {
		return name
	}
	return models.UnknownDocName
}
