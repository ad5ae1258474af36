package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/pkg/chunker"
	"github.com/nikhilbhutani/ragguard/pkg/textextract"
)

var (
	ErrNoFiles        = errors.New("no files found for processing")
	ErrInvalidOptions = errors.New("invalid chunking options")
)

const (
	DefaultChunkSize   = 100
	DefaultOverlapSize = 20
)

type ProcessRequest struct {
	FileID      string `json:"file_id,omitempty"`
	ChunkSize   int    `json:"chunk_size"`
	OverlapSize int    `json:"overlap_size"`
	DoReset     bool   `json:"do_reset"`
	// Strategy is a pkg/chunker strategy; empty means recursive.
	Strategy string `json:"strategy,omitempty"`
}

type ProcessResult struct {
	InsertedChunks int      `json:"inserted_chunks"`
	ProcessedFiles int      `json:"processed_files"`
	FailedFiles    []string `json:"failed_files,omitempty"`
}

// Process extracts and chunks the project's files, either the one named by
// FileID or all of them, and stores the chunks. A file that fails is logged
// and skipped; the rest are still processed.
func (s *Service) Process(ctx context.Context, projectID string, req ProcessRequest) (*ProcessResult, error) {
	if req.ChunkSize == 0 {
		req.ChunkSize = DefaultChunkSize
	}
	if req.ChunkSize < 0 || req.OverlapSize < 0 || req.OverlapSize >= req.ChunkSize {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap_size=%d", ErrInvalidOptions, req.ChunkSize, req.OverlapSize)
	}
	if !chunker.ValidStrategy(req.Strategy) {
		return nil, fmt.Errorf("%w: strategy=%q", ErrInvalidOptions, req.Strategy)
	}
	if req.Strategy == "" {
		req.Strategy = chunker.StrategyRecursive
	}

	var assets []models.Asset
	if req.FileID != "" {
		a, err := s.store.GetAsset(ctx, projectID, req.FileID)
		if err != nil {
			return nil, err
		}
		assets = []models.Asset{*a}
	} else {
		var err error
		assets, err = s.store.ListAssets(ctx, projectID, models.AssetTypeFile)
		if err != nil {
			return nil, err
		}
	}
	if len(assets) == 0 {
		return nil, ErrNoFiles
	}

	if req.DoReset {
		deleted, err := s.store.DeleteChunks(ctx, projectID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("deleted project chunks", "project_id", projectID, "count", deleted)
	}

	opts := chunker.ChunkOptions{ChunkSize: req.ChunkSize, ChunkOverlap: req.OverlapSize, Strategy: req.Strategy}
	result := &ProcessResult{}
	for _, asset := range assets {
		chunks, err := s.chunkFile(ctx, projectID, asset, opts)
		if err != nil {
			s.logger.Warn("file processing failed", "project_id", projectID, "file", asset.Name, "error", err)
			result.FailedFiles = append(result.FailedFiles, asset.Name)
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		n, err := s.store.InsertChunks(ctx, chunks)
		if err != nil {
			s.logger.Warn("storing chunks failed", "project_id", projectID, "file", asset.Name, "error", err)
			result.FailedFiles = append(result.FailedFiles, asset.Name)
			continue
		}
		result.InsertedChunks += n
		result.ProcessedFiles++
	}

	s.logger.Info("files processed",
		"project_id", projectID,
		"inserted_chunks", result.InsertedChunks,
		"processed_files", result.ProcessedFiles,
		"failed_files", len(result.FailedFiles),
	)
	return result, nil
}

func (s *Service) chunkFile(ctx context.Context, projectID string, asset models.Asset, opts chunker.ChunkOptions) ([]models.DataChunk, error) {
	rc, err := s.files.Download(ctx, s.bucket, projectID+"/"+asset.Name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.maxSize > 0 {
		r = io.LimitReader(rc, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrFileSize
	}

	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), filepath.Ext(asset.Name))
	if err != nil {
		return nil, err
	}

	var chunks []models.DataChunk
	for _, page := range extracted.Pages {
		for _, c := range s.chunker.Chunk(page.Text, opts) {
			chunks = append(chunks, models.DataChunk{
				Text: c.Content,
				Metadata: map[string]any{
					"source":   asset.Name,
					"doc_name": asset.Name,
					"page":     page.Number,
				},
				Order:     len(chunks) + 1,
				ProjectID: projectID,
				AssetID:   asset.ID,
			})
		}
	}
	return chunks, nil
}
