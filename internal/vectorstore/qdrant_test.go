package vectorstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

// fakeQdrant implements the handful of Qdrant REST routes the store uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int
	upserts     int
	apiKeys     []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/c1":
		dim, ok := f.collections["c1"]
		if !ok {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
			"status":       "green",
			"points_count": 3,
			"config":       map[string]any{"params": map[string]any{"vectors": map[string]any{"size": dim, "distance": "Cosine"}}},
		}})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/c1":
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections["c1"] = body.Vectors.Size
		_, _ = io.WriteString(w, `{"result":true}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/c1":
		_, existed := f.collections["c1"]
		delete(f.collections, "c1")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": existed})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/c1/points":
		var body struct {
			Points []json.RawMessage `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserts += len(body.Points)
		_, _ = io.WriteString(w, `{"result":{"status":"completed"}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/collections/c1/points/search":
		_, _ = io.WriteString(w, `{"result":[
			{"id":1,"score":0.9,"payload":{"text":"first","metadata":{"doc_name":"a.pdf"}}},
			{"id":2,"score":0.5,"payload":{"text":"second","doc_name":"top.pdf","metadata":{"doc_name":"inner.pdf"}}},
			{"id":3,"score":0.1,"payload":{"text":"third"}}
		]}`)
	default:
		http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
	}
}

func TestQdrantStore(t *testing.T) {
	fake := &fakeQdrant{collections: map[string]int{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL + "/", APIKey: "secret"})
	ctx := context.Background()

	_, err := s.CollectionInfo(ctx, "c1")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	created, err := s.CreateCollection(ctx, "c1", 4, false)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateCollection(ctx, "c1", 4, false)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.CreateCollection(ctx, "c1", 4, true)
	require.NoError(t, err)
	assert.True(t, created, "reset recreates")

	info, err := s.CollectionInfo(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 4, info.VectorSize)
	assert.Equal(t, DistanceCosine, info.Distance)

	n := qdrantUpsertBatch + 7
	texts := make([]string, n)
	metas := make([]map[string]any, n)
	vecs := make([][]float32, n)
	ids := make([]int64, n)
	for i := range texts {
		texts[i] = "t"
		vecs[i] = []float32{1, 0, 0, 0}
		ids[i] = int64(i)
	}
	require.NoError(t, s.InsertMany(ctx, "c1", texts, metas, vecs, ids))
	assert.Equal(t, n, fake.upserts)

	docs, err := s.SearchByVector(ctx, "c1", []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.RetrievedDocument{
		{Text: "first", Score: 0.9, DocName: "a.pdf"},
		{Text: "second", Score: 0.5, DocName: "top.pdf"},
		{Text: "third", Score: 0.1, DocName: models.UnknownDocName},
	}, docs)

	require.NoError(t, s.DeleteCollection(ctx, "c1"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "c1"), ErrCollectionNotFound)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestQdrantStore_SearchMissingCollection(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{collections: map[string]int{}})
	defer srv.Close()

	s := NewQdrantStore(QdrantConfig{URL: srv.URL})
	_, err := s.SearchByVector(context.Background(), "nope", []float32{1}, 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
