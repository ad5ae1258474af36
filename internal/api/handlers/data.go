package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/ragguard/internal/document"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/store"
	"github.com/nikhilbhutani/ragguard/pkg/chunker"
)

const maxMultipartMemory = 32 << 20

type DataHandler struct {
	docs  *document.Service
	tasks TaskEnqueuer
}

func NewDataHandler(docs *document.Service, tasks TaskEnqueuer) *DataHandler {
	return &DataHandler{docs: docs, tasks: tasks}
}

type processRequest struct {
	FileID      string `json:"file_id"`
	ChunkSize   int    `json:"chunk_size"`
	OverlapSize int    `json:"overlap_size"`
	DoReset     int    `json:"do_reset"`
	Strategy    string `json:"strategy"`
}

func defaultProcessRequest() processRequest {
	return processRequest{
		ChunkSize:   document.DefaultChunkSize,
		OverlapSize: document.DefaultOverlapSize,
	}
}

func (h *DataHandler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project")
	if err := models.ValidateProjectID(projectID); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalProjectNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalNoFilesError)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeSignal(w, http.StatusBadRequest, SignalNoFilesError)
		return
	}

	files := make([]document.File, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			slog.Warn("open uploaded file failed", "file", fh.Filename, "error", err)
			continue
		}
		opened = append(opened, f)
		files = append(files, document.File{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}

	res, err := h.docs.Upload(r.Context(), projectID, files)
	if err != nil {
		slog.Error("upload failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusInternalServerError, SignalFileUploadedFailed)
		return
	}

	if len(res.FileIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"signal":  uploadFailureSignal(res.Skipped),
			"skipped": res.Skipped,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal":   SignalFileUploadedSuccess,
		"file_ids": res.FileIDs,
		"count":    len(res.FileIDs),
		"skipped":  res.Skipped,
	})
}

// uploadFailureSignal explains an upload where no file was accepted. Only
// validation reasons are specific; anything else is a generic failure.
func uploadFailureSignal(skipped []document.SkippedFile) ResponseSignal {
	if len(skipped) == 1 {
		if err := skipped[0].Err; err != nil {
			switch {
			case errors.Is(err, document.ErrFileType):
				return SignalFileTypeNotSupported
			case errors.Is(err, document.ErrFileSize):
				return SignalFileSizeExceeded
			}
		}
	}
	return SignalFileUploadedFailed
}

func (h *DataHandler) Process(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project")
	req := defaultProcessRequest()
	if err := decodeJSON(r, &req); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
		return
	}

	res, err := h.docs.Process(r.Context(), projectID, document.ProcessRequest{
		FileID:      req.FileID,
		ChunkSize:   req.ChunkSize,
		OverlapSize: req.OverlapSize,
		DoReset:     req.DoReset == 1,
		Strategy:    req.Strategy,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeSignal(w, http.StatusNotFound, SignalFileIDError)
		return
	case errors.Is(err, document.ErrNoFiles):
		writeSignal(w, http.StatusBadRequest, SignalNoFilesForProcessing)
		return
	case errors.Is(err, document.ErrInvalidOptions):
		writeSignal(w, http.StatusBadRequest, SignalChunkingError)
		return
	case err != nil:
		slog.Error("processing failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusInternalServerError, SignalFileProcessingFailed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal":          SignalFileProcessedSuccess,
		"inserted_chunks": res.InsertedChunks,
		"processed_files": res.ProcessedFiles,
		"failed_files":    res.FailedFiles,
	})
}

func (h *DataHandler) ProcessAsync(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeSignal(w, http.StatusServiceUnavailable, SignalQueueUnavailable)
		return
	}
	projectID := chi.URLParam(r, "project")
	if err := models.ValidateProjectID(projectID); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalProjectNotFound)
		return
	}
	req := defaultProcessRequest()
	if err := decodeJSON(r, &req); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
		return
	}
	if !chunker.ValidStrategy(req.Strategy) {
		writeSignal(w, http.StatusBadRequest, SignalChunkingError)
		return
	}

	taskID, err := h.tasks.EnqueueDataProcess(r.Context(), queue.DataProcessPayload{
		ProjectID:   projectID,
		FileID:      req.FileID,
		ChunkSize:   req.ChunkSize,
		OverlapSize: req.OverlapSize,
		DoReset:     req.DoReset == 1,
		Strategy:    req.Strategy,
	})
	if err != nil {
		slog.Error("enqueue processing failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusServiceUnavailable, SignalQueueUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"signal":  SignalFileProcessingEnqueued,
		"task_id": taskID,
	})
}
