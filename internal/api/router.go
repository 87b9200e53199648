package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"jamesfarrell.me/video-search/internal/api/handlers"
	"jamesfarrell.me/video-search/internal/api/middleware"
)

// NewRouter wires the HTTP surface: a public health check plus
// API-key-protected ingest and search routes.
func NewRouter(h *handlers.Handler, serviceKey string) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(middleware.APIKey(serviceKey))

	protected.HandleFunc("/videos", h.Ingest).Methods(http.MethodPost)
	protected.HandleFunc("/search", h.Search).Methods(http.MethodPost)

	return r
}
