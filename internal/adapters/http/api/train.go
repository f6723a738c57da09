package api

import (
	"net/http"

	"github.com/okian/attrition/internal/domain/importance"
)

// TrainHandler handles the training job and importance reads.
type TrainHandler struct {
	deps Dependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps Dependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

type importanceResponse struct {
	Trained      bool           `json:"trained"`
	ModelVersion string         `json:"model_version,omitempty"`
	Importance   importance.Set `json:"importance"`
}

// HandleTrain handles POST /train (start), GET /train (status) and
// DELETE /train (cancel).
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		job, err := h.deps.StartTraining(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job.Status())
	case http.MethodGet:
		st, err := h.deps.TrainingStatus()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		if err := h.deps.CancelTraining(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		st, _ := h.deps.TrainingStatus()
		writeJSON(w, http.StatusAccepted, st)
	default:
		http.NotFound(w, r)
	}
}

// HandleImportance handles GET /importance.
func (h *TrainHandler) HandleImportance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := importanceResponse{Importance: h.deps.Importance()}
	if m := h.deps.Model(); m != nil {
		resp.Trained = true
		resp.ModelVersion = m.Version
	}
	writeJSON(w, http.StatusOK, resp)
}
