package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// defaultRankingLimit applies when GET /ranking has no limit.
const defaultRankingLimit = 10

// RankingHandler handles batch scoring and ranking reads.
type RankingHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps Dependencies, maxLimit int) *RankingHandler {
	return &RankingHandler{deps: deps, maxLimit: maxLimit}
}

// HandleScore handles POST /score: assess the whole dataset and rebuild the
// ranking.
func (h *RankingHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.ScoreDataset(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleTopN handles GET /ranking?limit=N requests.
func (h *RankingHandler) HandleTopN(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultRankingLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, errors.New("limit must be a positive integer")))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", badRequest(op, errors.New("limit exceeds "+strconv.Itoa(h.maxLimit))))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRank handles GET /ranking/{employee_id} requests.
func (h *RankingHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /ranking/
	id := strings.TrimPrefix(r.URL.Path, "/ranking/")
	if id == "" || strings.Contains(id, "/") {
		writeServiceError(w, badRequest(op, errors.New("missing employee id")))
		return
	}
	entry, err := h.deps.Rank(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleExport handles GET /export/high-risk as a CSV download.
func (h *RankingHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Buffer so a failure still yields a JSON error instead of partial CSV.
	var buf bytes.Buffer
	if _, err := h.deps.ExportHighRisk(r.Context(), &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="high_risk_employees.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
