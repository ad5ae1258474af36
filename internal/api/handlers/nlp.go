package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/ragguard/internal/audit"
	"github.com/nikhilbhutani/ragguard/internal/guardrails"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/queue"
	"github.com/nikhilbhutani/ragguard/internal/rag"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

// ProjectStore is the part of store.Store the NLP routes need.
type ProjectStore interface {
	GetOrCreateProject(ctx context.Context, projectID string) (*models.Project, error)
	rag.ChunkSource
}

// TaskEnqueuer schedules background work. queue.Client implements it.
type TaskEnqueuer interface {
	EnqueueIndexPush(ctx context.Context, p queue.IndexPushPayload) (string, error)
	EnqueueDataProcess(ctx context.Context, p queue.DataProcessPayload) (string, error)
}

type NLPHandler struct {
	projects  ProjectStore
	indexer   *rag.Indexer
	retriever *rag.Retriever
	answerer  *rag.Answerer
	vectors   vectorstore.VectorStore
	guards    *guardrails.Pipeline
	tasks     TaskEnqueuer
	events    audit.Recorder
}

func NewNLPHandler(projects ProjectStore, indexer *rag.Indexer, retriever *rag.Retriever, answerer *rag.Answerer,
	vectors vectorstore.VectorStore, guards *guardrails.Pipeline, tasks TaskEnqueuer, events audit.Recorder) *NLPHandler {
	if guards == nil {
		guards = guardrails.NewPipeline()
	}
	return &NLPHandler{
		projects:  projects,
		indexer:   indexer,
		retriever: retriever,
		answerer:  answerer,
		vectors:   vectors,
		guards:    guards,
		tasks:     tasks,
		events:    events,
	}
}

// pushRequest accepts the boolean resetBeforeFirstPage or the integer
// do_reset flag.
type pushRequest struct {
	ResetBeforeFirstPage *bool `json:"resetBeforeFirstPage,omitempty"`
	DoReset              int   `json:"do_reset"`
}

func (p pushRequest) reset() bool {
	if p.ResetBeforeFirstPage != nil {
		return *p.ResetBeforeFirstPage
	}
	return p.DoReset == 1
}

type searchRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

// project resolves the {project} URL parameter, creating the project on
// first use. It writes the error response itself and reports false.
func (h *NLPHandler) project(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "project")
	if _, err := h.projects.GetOrCreateProject(r.Context(), id); err != nil {
		if !errors.Is(err, models.ErrInvalidProjectID) {
			slog.Error("get or create project failed", "project_id", id, "error", err)
		}
		writeSignal(w, http.StatusBadRequest, SignalProjectNotFound)
		return "", false
	}
	return id, true
}

func (h *NLPHandler) Push(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
		return
	}

	n, err := h.indexer.Push(r.Context(), h.projects, projectID, req.reset())
	if err != nil {
		slog.Error("index push failed", "project_id", projectID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"signal":               SignalInsertIntoVectorDBError,
			"inserted_items_count": n,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal":               SignalInsertIntoVectorDBOK,
		"inserted_items_count": n,
	})
}

func (h *NLPHandler) PushAsync(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeSignal(w, http.StatusServiceUnavailable, SignalQueueUnavailable)
		return
	}
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
		return
	}

	taskID, err := h.tasks.EnqueueIndexPush(r.Context(), queue.IndexPushPayload{ProjectID: projectID, Reset: req.reset()})
	if err != nil {
		slog.Error("enqueue index push failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusServiceUnavailable, SignalQueueUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"signal":  SignalIndexPushEnqueued,
		"task_id": taskID,
	})
}

func (h *NLPHandler) Info(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}

	info, err := h.vectors.CollectionInfo(r.Context(), rag.CollectionName(projectID))
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		writeSignal(w, http.StatusNotFound, SignalCollectionNotFound)
		return
	}
	if err != nil {
		slog.Error("collection info failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusInternalServerError, SignalVectorSearchError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal":          SignalCollectionInfoOK,
		"collection_info": info,
	})
}

func (h *NLPHandler) Reset(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}

	if err := h.vectors.DeleteCollection(r.Context(), rag.CollectionName(projectID)); err != nil {
		slog.Error("collection reset failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusInternalServerError, SignalCollectionResetError)
		return
	}
	writeSignal(w, http.StatusOK, SignalCollectionResetOK)
}

// query decodes and screens a search/answer request body.
func (h *NLPHandler) query(w http.ResponseWriter, r *http.Request, projectID string) (searchRequest, bool) {
	req := searchRequest{Limit: rag.DefaultLimit}
	if err := decodeJSON(r, &req); err != nil || req.Text == "" {
		writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
		return req, false
	}

	res, err := h.guards.CheckInput(r.Context(), req.Text)
	if err != nil || !res.Allowed {
		event := audit.Event{ProjectID: projectID, Kind: audit.KindQueryRejected, Reason: "input check failed", Query: req.Text}
		if res != nil {
			event.Reason = res.Reason
			event.Flags = res.Flags
		}
		if h.events != nil {
			if err := h.events.Record(r.Context(), event); err != nil {
				slog.Error("record security event failed", "project_id", projectID, "error", err)
			}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"signal": SignalQueryRejected,
			"reason": event.Reason,
		})
		return req, false
	}
	return req, true
}

func (h *NLPHandler) Search(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	req, ok := h.query(w, r, projectID)
	if !ok {
		return
	}

	docs, err := h.retriever.Retrieve(r.Context(), projectID, req.Text, req.Limit)
	if err != nil {
		slog.Error("vector search failed", "project_id", projectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"signal":  SignalVectorSearchError,
			"results": []models.RetrievedDocument{},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal":  SignalVectorSearchOK,
		"results": docs,
	})
}

func (h *NLPHandler) Answer(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.project(w, r)
	if !ok {
		return
	}
	req, ok := h.query(w, r, projectID)
	if !ok {
		return
	}

	bundle := h.answerer.Answer(r.Context(), projectID, req.Text, req.Limit)
	switch bundle.Outcome {
	case rag.OutcomeAnswered:
		writeJSON(w, http.StatusOK, map[string]any{
			"signal":       SignalRAGAnswerOK,
			"answer":       bundle.Answer,
			"full_prompt":  bundle.FullPrompt,
			"chat_history": bundle.ChatHistory,
		})
	case rag.OutcomeRefused:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"signal":       SignalRAGAnswerRefused,
			"answer":       bundle.Answer,
			"full_prompt":  bundle.FullPrompt,
			"chat_history": bundle.ChatHistory,
		})
	case rag.OutcomeRetrievalFailed:
		writeSignal(w, http.StatusInternalServerError, SignalVectorSearchError)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"signal":  SignalRAGAnswerError,
			"outcome": bundle.Outcome,
		})
	}
}

func (h *NLPHandler) Events(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project")
	if err := models.ValidateProjectID(projectID); err != nil {
		writeSignal(w, http.StatusBadRequest, SignalProjectNotFound)
		return
	}
	if h.events == nil {
		writeJSON(w, http.StatusOK, map[string]any{"signal": SignalSecurityEventsOK, "events": []audit.Event{}})
		return
	}

	q := audit.Query{ProjectID: projectID, Kind: r.URL.Query().Get("kind")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeSignal(w, http.StatusBadRequest, SignalInvalidRequest)
			return
		}
		q.Offset = n
	}

	events, err := h.events.List(r.Context(), q)
	if err != nil {
		slog.Error("list security events failed", "project_id", projectID, "error", err)
		writeSignal(w, http.StatusInternalServerError, SignalSecurityEventsError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signal": SignalSecurityEventsOK, "events": events})
}
