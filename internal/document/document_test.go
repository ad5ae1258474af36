package document

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/storage"
	"github.com/nikhilbhutani/ragguard/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *storage.LocalStorage) {
	t.Helper()
	st := store.NewMemoryStore()
	files := storage.NewLocalStorage(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.FilesConfig{AllowedTypes: []string{".txt", "pdf"}, MaxSizeMB: 1}
	return NewService(st, files, "files", cfg, logger), st, files
}

func textFile(name, body string) File {
	return File{Name: name, Size: int64(len(body)), ContentType: "text/plain", Data: strings.NewReader(body)}
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "my_report_v2.txt", CleanFileName("  my report (v2).txt "))
	assert.Equal(t, "passwd", CleanFileName("../../etc/passwd"))
	assert.Equal(t, "تقرير.pdf", CleanFileName("تقرير.pdf"))
	assert.Equal(t, "file", CleanFileName("..."))
}

func TestNewFileID(t *testing.T) {
	a := NewFileID("notes.txt")
	b := NewFileID("notes.txt")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_notes.txt"))
	assert.Len(t, a, 12+len("_notes.txt"))
}

func TestValidate(t *testing.T) {
	s, _, _ := newTestService(t)
	assert.NoError(t, s.Validate("a.TXT", 10))
	assert.NoError(t, s.Validate("a.pdf", 10))
	assert.ErrorIs(t, s.Validate("a.exe", 10), ErrFileType)
	assert.ErrorIs(t, s.Validate("a.txt", 2*1024*1024), ErrFileSize)
}

func TestUpload_SkipsInvalidFiles(t *testing.T) {
	ctx := context.Background()
	s, st, files := newTestService(t)

	res, err := s.Upload(ctx, "p1", []File{
		textFile("good.txt", "hello world"),
		textFile("bad.exe", "MZ"),
	})
	require.NoError(t, err)
	require.Len(t, res.FileIDs, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "bad.exe", res.Skipped[0].Name)

	asset, err := st.GetAsset(ctx, "p1", res.FileIDs[0])
	require.NoError(t, err)
	assert.Equal(t, int64(11), asset.Size)
	assert.Equal(t, models.AssetTypeFile, asset.Type)

	rc, err := files.Download(ctx, "files", "p1/"+res.FileIDs[0])
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello world", string(data))
}

func TestUpload_InvalidProject(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Upload(context.Background(), "not valid", []File{textFile("a.txt", "x")})
	assert.ErrorIs(t, err, models.ErrInvalidProjectID)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService(t)

	res, err := s.Upload(ctx, "p1", []File{
		textFile("a.txt", "alpha beta gamma delta epsilon zeta eta theta"),
		textFile("b.txt", "short"),
	})
	require.NoError(t, err)
	require.Len(t, res.FileIDs, 2)

	out, err := s.Process(ctx, "p1", ProcessRequest{ChunkSize: 20, OverlapSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, out.ProcessedFiles)
	assert.Empty(t, out.FailedFiles)

	chunks, err := st.ListChunks(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, chunks, out.InsertedChunks)
	assert.Greater(t, out.InsertedChunks, 2)

	first := chunks[0]
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, res.FileIDs[0], first.Metadata["doc_name"])
	assert.Equal(t, res.FileIDs[0], first.Metadata["source"])
	assert.Equal(t, "p1", first.ProjectID)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 20)
	}

	again, err := s.Process(ctx, "p1", ProcessRequest{FileID: res.FileIDs[1], ChunkSize: 20, OverlapSize: 5, DoReset: true})
	require.NoError(t, err)
	assert.Equal(t, 1, again.InsertedChunks)
	chunks, err = st.ListChunks(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
}

func TestProcess_SkipsFailingFile(t *testing.T) {
	ctx := context.Background()
	s, st, files := newTestService(t)

	res, err := s.Upload(ctx, "p1", []File{
		textFile("gone.txt", "this file disappears"),
		textFile("kept.txt", "this file stays"),
	})
	require.NoError(t, err)
	require.NoError(t, files.Delete(ctx, "files", "p1/"+res.FileIDs[0]))

	out, err := s.Process(ctx, "p1", ProcessRequest{ChunkSize: 100, OverlapSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ProcessedFiles)
	assert.Equal(t, 1, out.InsertedChunks)
	assert.Equal(t, []string{res.FileIDs[0]}, out.FailedFiles)

	chunks, err := st.ListChunks(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "this file stays", chunks[0].Text)
}

func TestProcess_Errors(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	_, err := s.Process(ctx, "p1", ProcessRequest{ChunkSize: 100})
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = s.Process(ctx, "p1", ProcessRequest{FileID: "nope.txt", ChunkSize: 100})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Process(ctx, "p1", ProcessRequest{ChunkSize: 10, OverlapSize: 10})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = s.Process(ctx, "p1", ProcessRequest{ChunkSize: 10, Strategy: "paragraph"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestProcess_SentenceStrategy(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService(t)

	_, err := s.Upload(ctx, "p1", []File{textFile("s.txt", "One fact. Two facts. Three facts.")})
	require.NoError(t, err)

	out, err := s.Process(ctx, "p1", ProcessRequest{ChunkSize: 12, Strategy: "sentence"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.InsertedChunks)

	chunks, err := st.ListChunks(ctx, "p1", 1)
	require.NoError(t, err)
	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"One fact.", "Two facts.", "Three facts."}, texts)
}
