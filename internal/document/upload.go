// Package document handles uploaded source files: validating and storing
// them, then turning them into chunks.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/storage"
	"github.com/nikhilbhutani/ragguard/internal/store"
	"github.com/nikhilbhutani/ragguard/pkg/chunker"
)

var (
	ErrFileType = errors.New("file type not supported")
	ErrFileSize = errors.New("file size exceeded")
)

type Service struct {
	store   store.Store
	files   storage.Storage
	bucket  string
	chunker chunker.Chunker
	allowed map[string]bool
	maxSize int64
	logger  *slog.Logger
}

func NewService(st store.Store, files storage.Storage, bucket string, cfg config.FilesConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		allowed[t] = true
	}
	return &Service{
		store:   st,
		files:   files,
		bucket:  bucket,
		chunker: chunker.New(),
		allowed: allowed,
		maxSize: int64(cfg.MaxSizeMB) * 1024 * 1024,
		logger:  logger,
	}
}

// File is one incoming upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

type UploadResult struct {
	FileIDs []string      `json:"file_ids"`
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// Validate checks a file's extension against the allow-list and its size
// against the cap.
func (s *Service) Validate(name string, size int64) error {
	if !s.allowed[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: %s", ErrFileType, filepath.Ext(name))
	}
	if s.maxSize > 0 && size > s.maxSize {
		return fmt.Errorf("%w: %d bytes", ErrFileSize, size)
	}
	return nil
}

// Upload stores every valid file and records it as an asset of the project,
// creating the project if needed. Invalid or failing files are skipped.
func (s *Service) Upload(ctx context.Context, projectID string, files []File) (*UploadResult, error) {
	if _, err := s.store.GetOrCreateProject(ctx, projectID); err != nil {
		return nil, err
	}

	result := &UploadResult{FileIDs: []string{}}
	for _, f := range files {
		asset, err := s.uploadOne(ctx, projectID, f)
		if err != nil {
			s.logger.Warn("skipping uploaded file", "project_id", projectID, "file", f.Name, "error", err)
			result.Skipped = append(result.Skipped, SkippedFile{Name: f.Name, Reason: err.Error(), Err: err})
			continue
		}
		result.FileIDs = append(result.FileIDs, asset.Name)
	}
	return result, nil
}

func (s *Service) uploadOne(ctx context.Context, projectID string, f File) (*models.Asset, error) {
	if err := s.Validate(f.Name, f.Size); err != nil {
		return nil, err
	}

	fileID := NewFileID(f.Name)
	objectPath := projectID + "/" + fileID
	counter := &countingReader{r: f.Data, limit: s.maxSize}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.files.Upload(ctx, s.bucket, objectPath, counter, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	asset, err := s.store.CreateAsset(ctx, &models.Asset{
		ProjectID: projectID,
		Type:      models.AssetTypeFile,
		Name:      fileID,
		Size:      counter.n,
	})
	if err != nil {
		_ = s.files.Delete(ctx, s.bucket, objectPath)
		return nil, err
	}
	return asset, nil
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_.]`)

// NewFileID returns a unique, storage-safe id that keeps the cleaned
// original name as a suffix.
func NewFileID(name string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "_" + CleanFileName(name)
}

// CleanFileName drops directories, turns spaces into underscores and removes
// anything but letters, digits, underscores and dots.
func CleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	if strings.Trim(name, ".") == "" {
		return "file"
	}
	return name
}

// countingReader counts bytes and fails once more than limit have been read.
type countingReader struct {
	r     io.Reader
	n     int64
	limit int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, ErrFileSize
	}
	return n, err
}
