package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/document"
	"github.com/nikhilbhutani/ragguard/internal/llm/llmtest"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/rag"
	"github.com/nikhilbhutani/ragguard/internal/storage"
	"github.com/nikhilbhutani/ragguard/internal/store"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func seedChunks(t *testing.T, st *store.MemoryStore, projectID string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := st.GetOrCreateProject(ctx, projectID)
	require.NoError(t, err)
	chunks := make([]models.DataChunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.DataChunk{Text: text, Order: i + 1, ProjectID: projectID, AssetID: 1}
	}
	_, err = st.InsertChunks(ctx, chunks)
	require.NoError(t, err)
}

func TestIndexWorker(t *testing.T) {
	st := store.NewMemoryStore()
	seedChunks(t, st, "p1", "one", "two", "three")
	vs := vectorstore.NewMemoryStore(vectorstore.DistanceCosine)
	ix := rag.NewIndexer(llmtest.NewProvider(4), vs, rag.WithEmbedInterval(0), rag.WithLogger(discard))

	task, err := queue.NewIndexPushTask(queue.IndexPushPayload{ProjectID: "p1", Reset: true})
	require.NoError(t, err)
	require.NoError(t, NewIndexWorker(ix, st).ProcessTask(context.Background(), task))

	info, err := vs.CollectionInfo(context.Background(), rag.CollectionName("p1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.PointsCount)
}

func TestIndexWorker_BadPayloadSkipsRetry(t *testing.T) {
	ix := rag.NewIndexer(llmtest.NewProvider(4), vectorstore.NewMemoryStore(vectorstore.DistanceCosine))
	w := NewIndexWorker(ix, store.NewMemoryStore())

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeIndexPush, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := queue.NewIndexPushTask(queue.IndexPushPayload{ProjectID: "bad id"})
	require.NoError(t, err)
	err = w.ProcessTask(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWorker(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	files := storage.NewLocalStorage(t.TempDir())
	docs := document.NewService(st, files, "files", config.FilesConfig{AllowedTypes: []string{".txt"}, MaxSizeMB: 1}, discard)

	up, err := docs.Upload(ctx, "p1", []document.File{{Name: "a.txt", Size: 11, Data: strings.NewReader("hello world")}})
	require.NoError(t, err)
	require.Len(t, up.FileIDs, 1)

	w := NewProcessWorker(docs)
	task, err := queue.NewDataProcessTask(queue.DataProcessPayload{ProjectID: "p1", ChunkSize: 100, OverlapSize: 20})
	require.NoError(t, err)
	require.NoError(t, w.ProcessTask(ctx, task))

	chunks, err := st.ListChunks(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)

	task, err = queue.NewDataProcessTask(queue.DataProcessPayload{ProjectID: "empty", ChunkSize: 100, OverlapSize: 20})
	require.NoError(t, err)
	err = w.ProcessTask(ctx, task)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "no files is permanent")
}
