package api

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/attrition/internal/domain/dataset"
	"github.com/okian/attrition/pkg/logger"
)

// DatasetHandler handles dataset upload and descriptive reads.
type DatasetHandler struct {
	deps     Dependencies
	maxBytes int64
	logger   logger.Logger
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(deps Dependencies, maxBytes int64, l logger.Logger) *DatasetHandler {
	return &DatasetHandler{deps: deps, maxBytes: maxBytes, logger: l}
}

type uploadResponse struct {
	Status string             `json:"status"`
	Report dataset.LoadReport `json:"report"`
}

// HandleUpload handles POST /dataset. The body is either raw CSV or a
// multipart form with the CSV in the "file" field.
func (h *DatasetHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_dataset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var body io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeServiceError(w, badRequest(op, err))
			return
		}
		defer file.Close()
		body = file
	}

	report, err := h.deps.LoadDataset(r.Context(), body)
	if err != nil {
		h.logger.Debug(r.Context(), "dataset rejected", logger.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Status: "loaded", Report: report})
}

// HandleSummary handles GET /dataset/summary.
func (h *DatasetHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.Summary()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleAnalysis handles GET /analysis.
func (h *DatasetHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rep, err := h.deps.Analysis()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
