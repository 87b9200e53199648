// Package handlers implements the HTTP endpoints over the ingestion
// pipeline and query engine.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"jamesfarrell.me/video-search/internal/index"
	"jamesfarrell.me/video-search/internal/pipeline"
	"jamesfarrell.me/video-search/internal/search"
)

type IngestRequest struct {
	// Input is a playlist URL and/or comma-separated video URLs.
	Input string `json:"input"`
}

type IngestResponse struct {
	JobID   string                 `json:"jobId"`
	Added   int                    `json:"added"`
	Skipped int                    `json:"skipped"`
	Failed  int                    `json:"failed"`
	Videos  []pipeline.VideoStatus `json:"videos"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type SearchResponse struct {
	Status  string          `json:"status"`
	Results *search.Results `json:"results,omitempty"`
}

type Handler struct {
	pipeline *pipeline.Pipeline
	engine   *search.Engine
	store    index.Store
}

func New(p *pipeline.Pipeline, e *search.Engine, store index.Store) *Handler {
	return &Handler{pipeline: p, engine: e, store: store}
}

// Ingest runs the pipeline for the requested videos and persists the index.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	jobID := uuid.NewString()
	fmt.Printf("Ingest job %s: %s\n", jobID, req.Input)

	statuses, err := h.pipeline.Run(r.Context(), req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.Persist(); err != nil {
		http.Error(w, fmt.Sprintf("persist index: %v", err), http.StatusInternalServerError)
		return
	}

	summary := pipeline.Summarize(statuses)
	writeJSON(w, IngestResponse{
		JobID:   jobID,
		Added:   summary.Added,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
		Videos:  statuses,
	})
}

// Search returns both result views, or a "no data" status for an empty
// index.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	results, err := h.engine.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, index.ErrEmptyIndex) {
			writeJSON(w, SearchResponse{Status: "no data"})
			return
		}
		var corrupt *index.CorruptIndexError
		if errors.As(err, &corrupt) {
			http.Error(w, corrupt.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, SearchResponse{Status: "ok", Results: &results})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
