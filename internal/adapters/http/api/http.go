// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/attrition/internal/adapters/repository"
	"github.com/okian/attrition/internal/adapters/storage"
	service "github.com/okian/attrition/internal/app"
	"github.com/okian/attrition/internal/domain/analysis"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/dataset"
	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/scoring"
	"github.com/okian/attrition/internal/domain/types"
	"github.com/okian/attrition/pkg/logger"
	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LoadDataset(ctx context.Context, r io.Reader) (dataset.LoadReport, error)
	Summary() (analysis.Summary, error)
	Analysis() (analysis.Report, error)

	StartTraining(ctx context.Context) (*service.TrainingJob, error)
	TrainingStatus() (service.TrainingStatus, error)
	CancelTraining(ctx context.Context) error

	Predict(ctx context.Context, in model.RawEmployeeInput) model.RiskAssessment
	Explain(in model.RawEmployeeInput) []scoring.Contribution
	Importance() importance.Set
	Model() *classifier.Model

	Models(ctx context.Context, limit int) ([]storage.Version, error)
	ActivateModel(ctx context.Context, id string) (*classifier.Model, error)

	ScoreDataset(ctx context.Context) (service.BatchResult, error)
	ExportHighRisk(ctx context.Context, w io.Writer) (int, error)

	// Read operations expose the risk ranking.
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, employeeID string) (Entry, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	deps   Dependencies
	logger logger.Logger

	maxRankingLimit int
	maxUploadBytes  int64
	predictLimiter  *rate.Limiter

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	datasetHandler *DatasetHandler
	trainHandler   *TrainHandler
	predictHandler *PredictHandler
	rankingHandler *RankingHandler
	modelsHandler  *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		maxRankingLimit: 500,
		maxUploadBytes:  32 << 20,
		predictLimiter:  rate.NewLimiter(rate.Limit(50), 100),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.datasetHandler = NewDatasetHandler(deps, s.maxUploadBytes, s.logger)
	s.trainHandler = NewTrainHandler(deps)
	s.predictHandler = NewPredictHandler(deps)
	s.rankingHandler = NewRankingHandler(deps, s.maxRankingLimit)
	s.modelsHandler = NewModelsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/dataset", MetricsMiddleware(s.datasetHandler.HandleUpload, "dataset"))
	mux.HandleFunc("/dataset/summary", MetricsMiddleware(s.datasetHandler.HandleSummary, "dataset_summary"))
	mux.HandleFunc("/analysis", MetricsMiddleware(s.datasetHandler.HandleAnalysis, "analysis"))
	mux.HandleFunc("/train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("/importance", MetricsMiddleware(s.trainHandler.HandleImportance, "importance"))
	mux.HandleFunc("/models", MetricsMiddleware(s.modelsHandler.HandleList, "models"))
	mux.HandleFunc("/models/", MetricsMiddleware(s.modelsHandler.HandleActivate, "models_activate"))
	mux.HandleFunc("/predict", MetricsMiddleware(RateLimit(s.predictHandler.HandlePredict, s.predictLimiter), "predict"))
	mux.HandleFunc("/score", MetricsMiddleware(s.rankingHandler.HandleScore, "score"))
	mux.HandleFunc("/ranking", MetricsMiddleware(s.rankingHandler.HandleTopN, "ranking"))
	mux.HandleFunc("/ranking/", MetricsMiddleware(s.rankingHandler.HandleRank, "rank"))
	mux.HandleFunc("/export/high-risk", MetricsMiddleware(s.rankingHandler.HandleExport, "export"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream sentinels into status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, dataset.ErrDataLoad):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrUnknownEmployee),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoTrainingJob):
		return http.StatusNotFound, "no_training_job"
	case errors.Is(err, service.ErrNoDataset):
		return http.StatusConflict, "no_dataset"
	case errors.Is(err, service.ErrNoRegistry):
		return http.StatusConflict, "no_registry"
	case errors.Is(err, service.ErrTrainingInProgress),
		errors.Is(err, service.ErrScoringInProgress):
		return http.StatusConflict, "in_progress"
	case errors.Is(err, encoding.ErrEncoding),
		errors.Is(err, classifier.ErrTraining):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
