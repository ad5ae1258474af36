package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

// MemoryStore keeps everything in process memory. It backs tests and
// single-process development runs.
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]*models.Project
	assets    []models.Asset
	chunks    []models.DataChunk
	nextID    int64
	nextChunk int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*models.Project)}
}

func (s *MemoryStore) GetOrCreateProject(_ context.Context, projectID string) (*models.Project, error) {
	if err := models.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		s.nextID++
		p = &models.Project{ID: s.nextID, ProjectID: projectID, CreatedAt: time.Now()}
		s.projects[projectID] = p
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) CreateAsset(_ context.Context, a *models.Asset) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[a.ProjectID]; !ok {
		return nil, fmt.Errorf("project %s: %w", a.ProjectID, ErrNotFound)
	}

	rec := *a
	rec.PushedAt = time.Now()
	for i := range s.assets {
		if s.assets[i].ProjectID == a.ProjectID && s.assets[i].Name == a.Name {
			rec.ID = s.assets[i].ID
			s.assets[i] = rec
			return &rec, nil
		}
	}
	s.nextID++
	rec.ID = s.nextID
	s.assets = append(s.assets, rec)
	return &rec, nil
}

func (s *MemoryStore) GetAsset(_ context.Context, projectID, name string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.assets {
		if a.ProjectID == projectID && a.Name == name {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("asset %s: %w", name, ErrNotFound)
}

func (s *MemoryStore) ListAssets(_ context.Context, projectID, assetType string) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Asset
	for _, a := range s.assets {
		if a.ProjectID == projectID && a.Type == assetType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertChunks(_ context.Context, chunks []models.DataChunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if c.Text == "" || c.Order < 1 {
			return 0, fmt.Errorf("invalid chunk: order %d, %d bytes", c.Order, len(c.Text))
		}
	}
	for _, c := range chunks {
		s.nextChunk++
		c.ID = s.nextChunk
		c.Metadata = maps.Clone(c.Metadata)
		s.chunks = append(s.chunks, c)
	}
	return len(chunks), nil
}

func (s *MemoryStore) ListChunks(_ context.Context, projectID string, page int) ([]models.DataChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offset := pageOffset(page)
	var out []models.DataChunk
	seen := 0
	for _, c := range s.chunks {
		if c.ProjectID != projectID {
			continue
		}
		if seen >= offset && len(out) < PageSize {
			c.Metadata = maps.Clone(c.Metadata)
			out = append(out, c)
		}
		seen++
	}
	return out, nil
}

func (s *MemoryStore) DeleteChunks(_ context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	var deleted int64
	for _, c := range s.chunks {
		if c.ProjectID == projectID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return deleted, nil
}
