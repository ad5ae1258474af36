package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/rag"
)

// IndexWorker runs index:push tasks.
type IndexWorker struct {
	indexer *rag.Indexer
	chunks  rag.ChunkSource
}

func NewIndexWorker(indexer *rag.Indexer, chunks rag.ChunkSource) *IndexWorker {
	return &IndexWorker{indexer: indexer, chunks: chunks}
}

func (w *IndexWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.IndexPushPayload
	if err := queue.DecodePayload(t, &payload); err != nil {
		return err
	}
	if err := models.ValidateProjectID(payload.ProjectID); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	slog.Info("pushing project index", "project_id", payload.ProjectID, "reset", payload.Reset)

	n, err := w.indexer.Push(ctx, w.chunks, payload.ProjectID, payload.Reset)
	if err != nil {
		return fmt.Errorf("push project %s: %w", payload.ProjectID, err)
	}

	slog.Info("project index pushed", "project_id", payload.ProjectID, "inserted_items", n)
	return nil
}
