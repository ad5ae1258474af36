// Package store persists projects, uploaded assets and their chunks.
package store

import (
	"context"
	"errors"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

var ErrNotFound = errors.New("not found")

// PageSize is the number of chunks returned per ListChunks page.
const PageSize = 50

type Store interface {
	// GetOrCreateProject is idempotent: it returns the existing project or
	// creates it.
	GetOrCreateProject(ctx context.Context, projectID string) (*models.Project, error)

	// CreateAsset records an uploaded file. Re-recording a name within the
	// same project replaces the previous record's size and config.
	CreateAsset(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetAsset(ctx context.Context, projectID, name string) (*models.Asset, error)
	ListAssets(ctx context.Context, projectID, assetType string) ([]models.Asset, error)

	InsertChunks(ctx context.Context, chunks []models.DataChunk) (int, error)
	// ListChunks returns page (1-based) of a project's chunks in insertion
	// order. Pages past the end are empty.
	ListChunks(ctx context.Context, projectID string, page int) ([]models.DataChunk, error)
	DeleteChunks(ctx context.Context, projectID string) (int64, error)
}

func pageOffset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}
