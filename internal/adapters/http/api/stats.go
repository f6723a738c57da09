package api

import (
	"net/http"
	"strings"
)

// StatsProvider exposes a snapshot of service state.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats writes the snapshot. ?keys=a,b narrows it to the named keys;
// unknown keys are ignored.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	if raw := r.URL.Query().Get("keys"); raw != "" {
		picked := make(map[string]interface{})
		for _, k := range strings.Split(raw, ",") {
			if v, ok := stats[strings.TrimSpace(k)]; ok {
				picked[strings.TrimSpace(k)] = v
			}
		}
		stats = picked
	}
	writeJSON(w, http.StatusOK, stats)
}
