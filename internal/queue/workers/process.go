package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ragguard/internal/document"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/store"
)

// ProcessWorker runs data:process tasks.
type ProcessWorker struct {
	docs *document.Service
}

func NewProcessWorker(docs *document.Service) *ProcessWorker {
	return &ProcessWorker{docs: docs}
}

func (w *ProcessWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DataProcessPayload
	if err := queue.DecodePayload(t, &payload); err != nil {
		return err
	}

	res, err := w.docs.Process(ctx, payload.ProjectID, document.ProcessRequest{
		FileID:      payload.FileID,
		ChunkSize:   payload.ChunkSize,
		OverlapSize: payload.OverlapSize,
		DoReset:     payload.DoReset,
		Strategy:    payload.Strategy,
	})
	switch {
	case errors.Is(err, document.ErrNoFiles),
		errors.Is(err, document.ErrInvalidOptions),
		errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("process project %s: %v: %w", payload.ProjectID, err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("process project %s: %w", payload.ProjectID, err)
	}

	slog.Info("project files processed",
		"project_id", payload.ProjectID,
		"inserted_chunks", res.InsertedChunks,
		"processed_files", res.ProcessedFiles,
	)
	return nil
}
