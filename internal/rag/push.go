package rag

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

// ChunkSource pages through a project's stored chunks. Pages start at 1 and
// an empty page ends the listing.
type ChunkSource interface {
	ListChunks(ctx context.Context, projectID string, page int) ([]models.DataChunk, error)
}

// Push re-indexes every stored chunk of a project, page by page, under
// sequential record ids starting at 0. Reset applies to the first page only,
// so later pages add to the collection instead of replacing it.
func (ix *Indexer) Push(ctx context.Context, src ChunkSource, projectID string, reset bool) (int, error) {
	name := CollectionName(projectID)
	unlock, err := ix.locker.Lock(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lock %s: %w", name, err)
	}
	defer unlock()

	var inserted int
	var next int64
	for page := 1; ; page++ {
		chunks, err := src.ListChunks(ctx, projectID, page)
		if err != nil {
			return inserted, fmt.Errorf("list chunks page %d: %w", page, err)
		}
		if len(chunks) == 0 {
			break
		}

		ids := make([]int64, len(chunks))
		for i := range ids {
			ids[i] = next + int64(i)
		}

		if page > 1 && ix.alwaysRecreate {
			ix.logger.Warn("always-recreate replaced earlier pages, only the last page stays indexed",
				"collection", name, "page", page, "dropped", inserted)
		}
		n, err := ix.index(ctx, name, chunks, ids, reset && page == 1)
		if err != nil {
			return inserted, fmt.Errorf("index page %d: %w", page, err)
		}
		inserted += n
		next += int64(len(chunks))
	}

	return inserted, nil
}
