package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/attrition/internal/adapters/storage"
)

// defaultModelsLimit applies when GET /models has no limit.
const defaultModelsLimit = 20

// ModelsHandler lists stored model versions and switches the active one.
type ModelsHandler struct {
	deps Dependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps Dependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

type modelsResponse struct {
	Models []storage.Version `json:"models"`
}

type activateResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

// HandleList handles GET /models?limit=N.
func (h *ModelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_models"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultModelsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeServiceError(w, badRequest(op, errors.New("limit must be a positive integer")))
			return
		}
		n = v
	}
	versions, err := h.deps.Models(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if versions == nil {
		versions = []storage.Version{}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: versions})
}

// HandleActivate handles POST /models/{id}/activate.
func (h *ModelsHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	const op = "api.activate_model"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/models/"), "/activate")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		writeServiceError(w, badRequest(op, errors.New("missing model id")))
		return
	}
	m, err := h.deps.ActivateModel(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activateResponse{Status: "activated", ModelVersion: m.Version})
}
