package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/CTAG07/Verbena/pkg/autocomplete"
	"github.com/CTAG07/Verbena/pkg/markov"
	"github.com/CTAG07/Verbena/pkg/store"
)

// SessionAPI serves autocomplete sessions over HTTP. Each session is an
// autocomplete.Session bound to a model name, replaced wholesale on every
// choice.
type SessionAPI struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]sessionEntry
	models      *ModelCache
	tokenizer   markov.Tokenizer
	suggestions int
	logger      *slog.Logger
}

type sessionEntry struct {
	model   string
	session autocomplete.Session
}

type CreateSessionRequest struct {
	Model string   `json:"model"`
	Seed  []string `json:"seed"`
}

type ChooseRequest struct {
	Token string `json:"token"`
}

type SessionResponse struct {
	ID          uuid.UUID                 `json:"id"`
	Model       string                    `json:"model"`
	Session     autocomplete.Session      `json:"session"`
	Text        string                    `json:"text"`
	Suggestions []autocomplete.Suggestion `json:"suggestions"`
	// Error is set when the current context has no suggestions; the client
	// should offer to enter a different word.
	Error string `json:"error,omitempty"`
}

// NewSessionAPI creates a new instance of the SessionAPI.
func NewSessionAPI(models *ModelCache, tokenizer markov.Tokenizer, suggestions int, logger *slog.Logger) *SessionAPI {
	return &SessionAPI{
		sessions:    make(map[uuid.UUID]sessionEntry),
		models:      models,
		tokenizer:   tokenizer,
		suggestions: suggestions,
		logger:      logger,
	}
}

// RegisterRoutes sets up the routing for all /api/sessions endpoints.
func (a *SessionAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", a.handleCreate)
	mux.HandleFunc("/api/sessions/", a.handleSessionByID)
}

func (a *SessionAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeSessionsUse) {
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	sm, err := a.models.Get(r.Context(), req.Model)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	id := uuid.New()
	entry := sessionEntry{model: req.Model, session: autocomplete.NewSession(sm.Order(), req.Seed...)}
	a.mu.Lock()
	a.sessions[id] = entry
	a.mu.Unlock()
	sessionsActive.Inc()

	a.logger.Debug("Autocomplete session created", "session_id", id.String(), "model_name", req.Model)
	respondWithJSON(w, http.StatusCreated, a.describe(id, entry, sm))
}

func (a *SessionAPI) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeSessionsUse) {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")

	id, err := uuid.Parse(parts[0])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	a.mu.Lock()
	entry, ok := a.sessions[id]
	a.mu.Unlock()
	if !ok {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
		case http.MethodDelete:
			a.mu.Lock()
			if _, ok = a.sessions[id]; ok {
				delete(a.sessions, id)
				sessionsActive.Dec()
			}
			a.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
	} else if parts[1] == "choose" {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req ChooseRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
			respondWithError(w, http.StatusBadRequest, "A non-empty token is required")
			return
		}
		entry.session = entry.session.Choose(strings.TrimSpace(req.Token))
		a.mu.Lock()
		a.sessions[id] = entry
		a.mu.Unlock()
	} else {
		respondWithError(w, http.StatusNotFound, "Action not found")
		return
	}

	sm, err := a.models.Get(r.Context(), entry.model)
	if err != nil {
		respondWithError(w, http.StatusGone, fmt.Sprintf("Session model unavailable: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, a.describe(id, entry, sm))
}

// describe builds the response for a session, including the ranked
// suggestions for its current context.
func (a *SessionAPI) describe(id uuid.UUID, entry sessionEntry, src autocomplete.Source) SessionResponse {
	resp := SessionResponse{
		ID:      id,
		Model:   entry.model,
		Session: entry.session,
		Text:    a.tokenizer.Join(entry.session.Text),
	}
	suggestions, err := autocomplete.Suggest(src, entry.session, a.suggestions)
	if err != nil {
		if errors.Is(err, markov.ErrUnseenContext) {
			suggestionMisses.Inc()
		}
		resp.Error = err.Error()
		resp.Suggestions = []autocomplete.Suggestion{}
		return resp
	}
	resp.Suggestions = suggestions
	return resp
}
