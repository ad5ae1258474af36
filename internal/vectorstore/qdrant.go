package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

const qdrantUpsertBatch = 50

// QdrantStore is a REST client for Qdrant. Each point carries the chunk text
// and metadata in its payload.
type QdrantStore struct {
	baseURL  string
	apiKey   string
	distance Distance
	client   *http.Client
}

type QdrantConfig struct {
	URL      string
	APIKey   string
	Distance Distance
	Timeout  time.Duration
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = DistanceCosine
	}
	return &QdrantStore{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		distance: distance,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) qdrantDistance() string {
	if s.distance == DistanceDot {
		return "Dot"
	}
	return "Cosine"
}

func (s *QdrantStore) collectionURL(name string, suffix string) string {
	return s.baseURL + "/collections/" + url.PathEscape(name) + suffix
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	if dim <= 0 {
		return false, ErrInvalidDimension
	}
	if reset {
		if err := s.DeleteCollection(ctx, name); err != nil && !errors.Is(err, ErrCollectionNotFound) {
			return false, fmt.Errorf("reset collection: %w", err)
		}
	}

	_, err := s.CollectionInfo(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return false, err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": s.qdrantDistance(),
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(name, ""), body, nil); err != nil {
		return false, fmt.Errorf("create collection: %w", err)
	}
	return true, nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	// Qdrant answers 200 with result=false for a missing collection.
	var resp struct {
		Result bool `json:"result"`
	}
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(name, ""), nil, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return ErrCollectionNotFound
	}
	return nil
}

func (s *QdrantStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int64  `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionURL(name, ""), nil, &resp); err != nil {
		return nil, err
	}
	return &CollectionInfo{
		Name:        name,
		VectorSize:  resp.Result.Config.Params.Vectors.Size,
		Distance:    Distance(strings.ToLower(resp.Result.Config.Params.Vectors.Distance)),
		PointsCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}, nil
}

func (s *QdrantStore) InsertMany(ctx context.Context, name string, texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error {
	if err := checkBatch(texts, metadatas, vectors, ids); err != nil {
		return err
	}
	for start := 0; start < len(texts); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(texts))
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":     ids[i],
				"vector": vectors[i],
				"payload": map[string]any{
					"text":     texts[i],
					"metadata": metadatas[i],
				},
			})
		}
		body := map[string]any{"points": points}
		if err := s.do(ctx, http.MethodPut, s.collectionURL(name, "/points?wait=true"), body, nil); err != nil {
			return fmt.Errorf("upsert points %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (s *QdrantStore) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL(name, "/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]models.RetrievedDocument, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := hit{Score: r.Score, Payload: r.Payload}
		h.Text, _ = r.Payload["text"].(string)
		h.Metadata, _ = r.Payload["metadata"].(map[string]any)
		docs = append(docs, h.document())
	}
	return docs, nil
}

func (s *QdrantStore) do(ctx context.Context, method, u string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant marshal: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCollectionNotFound
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, u, resp.Status, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
