package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/risk"
	"github.com/okian/attrition/internal/domain/scoring"
)

// maxFactors is how many rule contributions a prediction explains.
const maxFactors = 3

// PredictHandler scores single employees.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

type predictResponse struct {
	model.RiskAssessment
	RecommendedAction string                 `json:"recommended_action"`
	Factors           []scoring.Contribution `json:"factors"`
}

// HandlePredict handles POST /predict with a RawEmployeeInput body. Unknown
// fields are ignored.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var in model.RawEmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeServiceError(w, badRequest(op, err))
		return
	}

	a := h.deps.Predict(r.Context(), in)
	factors := h.deps.Explain(in)
	if len(factors) > maxFactors {
		factors = factors[:maxFactors]
	}
	writeJSON(w, http.StatusOK, predictResponse{
		RiskAssessment:    a,
		RecommendedAction: risk.RecommendedAction(a.Level),
		Factors:           factors,
	})
}
