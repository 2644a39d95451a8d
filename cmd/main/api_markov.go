package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/CTAG07/Verbena/pkg/markov"
	"github.com/CTAG07/Verbena/pkg/store"
)

// MarkovAPI holds the dependencies for the Markov model API handlers.
type MarkovAPI struct {
	models    *ModelCache
	store     *store.Store
	tokenizer markov.Tokenizer
	config    *MarkovConfig
	logger    *slog.Logger
}

// NewMarkovAPI creates a new instance of the MarkovAPI.
func NewMarkovAPI(models *ModelCache, st *store.Store, tokenizer markov.Tokenizer, config *MarkovConfig, logger *slog.Logger) *MarkovAPI {
	return &MarkovAPI{
		models:    models,
		store:     st,
		tokenizer: tokenizer,
		config:    config,
		logger:    logger,
	}
}

// RegisterRoutes sets up the routing for all /api/markov endpoints.
func (m *MarkovAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/markov/models", m.handleListAndCreateModels)
	mux.HandleFunc("/api/markov/models/", m.handleModelByName)
	mux.HandleFunc("/api/markov/import", m.handleImport)
}

type CreateModelRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type GenerateRequest struct {
	Length int      `json:"length"`
	Start  []string `json:"start"`      // explicit start context
	Text   string   `json:"start_text"` // start context as text, tokenized server side
}

type GenerateResponse struct {
	Tokens []string `json:"tokens"`
	Text   string   `json:"text"`
}

type ModelResponse struct {
	Name  string            `json:"name"`
	Stats markov.ModelStats `json:"stats"`
}

// handleListAndCreateModels handles GET for listing and POST for creating models.
func (m *MarkovAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopeModelsRead) {
			return
		}
		models, err := m.store.ListModels(r.Context())
		if err != nil {
			m.logger.Error("Failed to list models", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, models)

	case http.MethodPost:
		if !requireScope(w, r, scopeModelsWrite) {
			return
		}
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Order == 0 {
			req.Order = m.config.DefaultOrder
		}
		if req.Name == "" || req.Order <= 0 {
			respondWithError(w, http.StatusBadRequest, "Model name and a positive order are required")
			return
		}

		sm, err := m.models.Create(r.Context(), req.Name, req.Order)
		if err != nil {
			if errors.Is(err, errModelExists) {
				respondWithError(w, http.StatusConflict, err.Error())
				return
			}
			m.logger.Error("Failed to create model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, ModelResponse{Name: req.Name, Stats: sm.Stats()})
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleModelByName routes actions for a specific model, e.g., train, generate, export, delete.
func (m *MarkovAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/markov/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	// Scope is checked before the lookup so unauthorized callers learn nothing about model names.
	scope := scopeModelsRead
	if r.Method != http.MethodGet && !(len(parts) > 1 && parts[1] == "generate") {
		scope = scopeModelsWrite
	}
	if !requireScope(w, r, scope) {
		return
	}

	sm, err := m.models.Get(r.Context(), modelName)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		m.logger.Error("Failed to load model", "name", modelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 { // Path is just /api/markov/models/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, ModelResponse{Name: modelName, Stats: sm.Stats()})
		case http.MethodDelete:
			if err = m.models.Remove(r.Context(), modelName); err != nil {
				m.logger.Error("Failed to remove model", "name", modelName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		n, err := m.models.Train(r.Context(), modelName, r.Body)
		if errors.Is(err, errModelChanged) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			m.logger.Error("Failed to train model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
			return
		}
		tokensTrained.WithLabelValues(modelName).Add(float64(n))
		respondWithJSON(w, http.StatusAccepted, map[string]int{"tokens": n})

	case "generate":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		m.generate(w, r, sm)

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var buf bytes.Buffer
		if err = sm.Export(&buf); err != nil {
			m.logger.Error("Failed to export model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", modelName))
		_, _ = buf.WriteTo(w)

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

func (m *MarkovAPI) generate(w http.ResponseWriter, r *http.Request, sm *markov.SyncModel) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Length == 0 {
		req.Length = m.config.GenerateLength
	}
	if req.Length < 0 || (m.config.MaxGenerateLength > 0 && req.Length > m.config.MaxGenerateLength) {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Length must be between 1 and %d", m.config.MaxGenerateLength))
		return
	}

	start := markov.RandomStart()
	switch {
	case len(req.Start) > 0:
		start = markov.StartFrom(req.Start)
	case req.Text != "":
		tokens, err := markov.ReadTokens(r.Context(), strings.NewReader(req.Text), m.tokenizer)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid start text: %v", err))
			return
		}
		start = markov.StartFrom(tokens)
	}

	began := time.Now()
	tokens, err := sm.Generate(req.Length, start)
	generateLatency.Observe(time.Since(began).Seconds())
	generations.WithLabelValues(generateStatus(err)).Inc()
	if err != nil {
		respondWithError(w, modelErrorStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{Tokens: tokens, Text: m.tokenizer.Join(tokens)})
}

// handleImport stores a model from an uploaded JSON export under ?name=.
func (m *MarkovAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeModelsWrite) {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	imported, err := markov.Import(r.Body, markov.WithLogger(m.logger))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	stats := imported.Stats()
	if err = m.models.Put(r.Context(), name, imported); err != nil {
		m.logger.Error("Failed to store imported model", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Import failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, ModelResponse{Name: name, Stats: stats})
}

// modelErrorStatus maps model errors onto HTTP status codes.
func modelErrorStatus(err error) int {
	switch {
	case errors.Is(err, markov.ErrInvalidContext):
		return http.StatusBadRequest
	case errors.Is(err, markov.ErrUnseenContext), errors.Is(err, markov.ErrEmptyModel):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
