package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/aide/internal/intent"
	"github.com/kalambet/aide/internal/memory"
	"github.com/kalambet/aide/internal/session"
	"github.com/kalambet/aide/internal/storage"
)

// InteractionReader exposes the interaction log to the API.
type InteractionReader interface {
	GetInteraction(id string) (storage.Interaction, error)
	GetRecentInteractions(sessionID string, limit int) ([]storage.Interaction, error)
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Sessions     *session.Manager
	Interactions InteractionReader // optional; interaction routes answer 404 when nil
	Token        string
}

// NewHandler returns the HTTP API. /health is open; everything under /v1
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/classify", handleClassify)
		r.Post("/chat", handleChat(deps))

		r.Get("/sessions", handleListSessions(deps))
		r.Post("/sessions", handleOpenSession(deps))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(withSession(deps))
			r.Get("/", handleSessionStatus)
			r.Delete("/", handleEndSession(deps))
			r.Post("/chat", handleSessionChat)
			r.Get("/messages", handleMessages)
			r.Post("/clear", handleClear)
			r.Get("/events", handleEvents)

			r.Get("/memory/stats", handleMemoryStats)
			r.Get("/memory/search", handleMemorySearch)
			r.Get("/memory/recent", handleMemoryRecent)
			r.Get("/memory/relevant", handleMemoryRelevant)
			r.Get("/memory/preferences", handleMemoryPreferences)
			r.Get("/memory/facts", handleMemoryFacts)
			r.Get("/memory/export", handleMemoryExport)
			r.Post("/memory/import", handleMemoryImport)
		})

		r.Get("/interactions", handleListInteractions(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type inputRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func handleClassify(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, intent.NewExtractor().Extract(req.Message))
}

// handleChat opens the session named in the body, or a new one, and runs a
// turn in it.
func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inputRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: %v", err)
			return
		}
		s, err := deps.Sessions.Open(req.SessionID)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, s.Handle(r.Context(), req.Message))
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Sessions.List())
	}
}

func handleOpenSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Sessions.Open("")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "opening session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, s.Status())
	}
}

type sessionKey struct{}

func withSession(deps Deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
			if errors.Is(err, session.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "session not found")
				return
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
		})
	}
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

func handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Status())
}

// handleEndSession ends the session; ?forget=true also deletes its records.
func handleEndSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionFrom(r).ID
		var err error
		if r.URL.Query().Get("forget") == "true" {
			err = deps.Sessions.Forget(id)
		} else {
			err = deps.Sessions.End(id)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "ending session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
	}
}

func handleSessionChat(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionFrom(r).Handle(r.Context(), req.Message))
}

func handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(sessionFrom(r).Messages()))
}

func handleClear(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Calendar().Events())
}

func handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Memory().Stats())
}

func handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sessionFrom(r).Memory().Search(q)))
}

func handleMemoryRecent(w http.ResponseWriter, r *http.Request) {
	hours := parseIntParam(r, "hours", session.RecentHours, 24*365)
	writeJSON(w, http.StatusOK, nonNil(sessionFrom(r).Memory().Recent(hours)))
}

func handleMemoryRelevant(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := parseIntParam(r, "limit", memory.DefaultRelevantLimit, 50)
	writeJSON(w, http.StatusOK, sessionFrom(r).Memory().Relevant(q, limit))
}

func handleMemoryPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Memory().Preferences())
}

func handleMemoryFacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Memory().Facts())
}

func handleMemoryExport(w http.ResponseWriter, r *http.Request) {
	data, err := sessionFrom(r).Memory().Export()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func handleMemoryImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
		return
	}
	if !sessionFrom(r).Memory().Import(data) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "memory import failed: invalid snapshot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"imported": true})
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Interactions == nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction log not enabled")
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)
		interactions, err := deps.Interactions.GetRecentInteractions(r.URL.Query().Get("session"), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(interactions))
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Interactions == nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction log not enabled")
			return
		}
		interaction, err := deps.Interactions.GetInteraction(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
