// Package httpapi is the thin HTTP transport adapter around the screening
// core. It owns status codes and framing; the core never sees HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spigell/hh-screener/internal/screening"
	"github.com/spigell/hh-screener/internal/session"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxUploadSize caps multipart resume uploads at the transport boundary.
const maxUploadSize = 10 << 20

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	orchestrator *screening.Orchestrator
	store        session.Store
	logger       *zap.Logger
	authToken    string
}

// NewHandler creates the transport handler. An empty authToken disables
// bearer authentication.
func NewHandler(o *screening.Orchestrator, store session.Store, logger *zap.Logger, authToken string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orchestrator: o, store: store, logger: logger, authToken: authToken}
}

// Router builds the chi router with all API routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		if h.authToken != "" {
			r.Use(bearerAuth(h.authToken))
		}
		r.Post("/api/messages", h.postMessage)
		r.Post("/api/sessions/{sessionID}/documents", h.postDocument)
		r.Get("/api/sessions", h.listSessions)
		r.Delete("/api/sessions/{sessionID}", h.deleteSession)
		r.Get("/api/analytics", h.analytics)
	})

	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	reply := h.orchestrator.ProcessMessage(req.Message, req.SessionID, req.Metadata)
	JSON(w, http.StatusOK, reply)
}

func (h *Handler) postDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		Error(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		Error(w, http.StatusInternalServerError, "reading upload failed")
		return
	}

	result := h.orchestrator.HandleDocumentUpload(
		data, header.Filename, header.Header.Get("Content-Type"), sessionID)

	status := http.StatusOK
	if !result.Success {
		// Rejections are domain results; 422 distinguishes them from
		// malformed requests.
		status = http.StatusUnprocessableEntity
	}
	JSON(w, status, result)
}

type sessionSummary struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	Messages     int       `json:"messages"`
	HasProfile   bool      `json:"has_profile"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func (h *Handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := h.store.List()
	if err != nil {
		Error(w, http.StatusInternalServerError, "listing sessions failed")
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:           s.ID,
			State:        string(s.Context.CurrentState),
			Messages:     s.MessageCount,
			HasProfile:   s.Profile() != nil,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
		})
	}
	JSON(w, http.StatusOK, summaries)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		Error(w, http.StatusInternalServerError, "deleting session failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) analytics(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.orchestrator.Analytics().Snapshot())
}
