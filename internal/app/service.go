// Package service owns the session state of the attrition service: the
// loaded dataset, the published model and its feature importance. It
// implements the dependencies required by the HTTP API and the batch runner.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/okian/attrition/internal/adapters/repository"
	"github.com/okian/attrition/internal/adapters/resilience"
	"github.com/okian/attrition/internal/adapters/storage"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/dataset"
	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/scoring"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
)

// ModelRegistry persists trained models.
type ModelRegistry interface {
	Save(ctx context.Context, m *classifier.Model, imp importance.Set) (storage.Version, error)
	Active(ctx context.Context) (*classifier.Model, importance.Set, error)
}

// state is an immutable snapshot. Writers copy it and swap the pointer.
type state struct {
	store   *dataset.Store
	report  dataset.LoadReport
	byID    map[string]model.EmployeeRecord
	model   *classifier.Model
	weights importance.Set
}

// Service is safe for concurrent use.
type Service struct {
	// writeMu serializes snapshot replacement; readers never lock.
	writeMu sync.Mutex
	state   atomic.Pointer[state]

	lifeMu  sync.Mutex
	started bool

	training atomic.Bool
	job      atomic.Pointer[TrainingJob]

	scoreMu     sync.Mutex
	assessMu    sync.RWMutex
	assessments map[string]model.RiskAssessment
	lastBatch   atomic.Pointer[BatchResult]

	ranking  repository.Store
	rules    scoring.Scorer
	breaker  *resilience.Breaker
	registry ModelRegistry

	trainCfg    classifier.Config
	noiseStd    float64
	workerCount int
	queueSize   int

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		trainCfg:    classifier.DefaultConfig(),
		noiseStd:    0.1,
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		assessments: make(map[string]model.RiskAssessment),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.ranking == nil {
		s.ranking = repository.NewTreapStore()
	}
	if s.rules == nil {
		s.rules = scoring.NewRuleScorer()
	}
	if s.breaker == nil {
		s.breaker = resilience.New(resilience.WithLogger(s.logger.Named("breaker")))
	}
	s.state.Store(&state{})
	return s
}

// Start restores the active model from the registry, if one is configured.
// A missing or unreadable model is not fatal: predictions fall back to rules.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting attrition service...")

	if s.registry != nil {
		m, imp, err := s.registry.Active(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Info(ctx, "no stored model, using rule scorer until trained")
		case err != nil:
			s.logger.Warn(ctx, "failed to restore model", logger.Error(err))
		default:
			if len(imp) == 0 {
				imp = importance.Default()
			}
			s.update(func(st *state) {
				st.model = m
				st.weights = imp
			})
			s.logger.Info(ctx, "restored model",
				logger.String("version", m.Version),
				logger.Int("width", m.Width()),
			)
		}
	}

	s.started = true
	s.logger.Info(ctx, "attrition service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop cancels a running training job.
func (s *Service) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping attrition service...")
	if job := s.job.Load(); job != nil {
		job.Cancel()
		<-job.Done()
	}
	s.started = false
	s.logger.Info(context.Background(), "attrition service stopped")
}

func (s *Service) snapshot() *state {
	return s.state.Load()
}

func (s *Service) update(fn func(st *state)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := *s.state.Load()
	fn(&next)
	s.state.Store(&next)
}

// Model returns the published model, or nil when none is trained.
func (s *Service) Model() *classifier.Model {
	return s.snapshot().model
}

// Importance returns the published feature importance, or the default table
// before the first successful training.
func (s *Service) Importance() importance.Set {
	if w := s.snapshot().weights; len(w) > 0 {
		return w
	}
	return importance.Default()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.lifeMu.Lock()
	started := s.started
	s.lifeMu.Unlock()

	ctx := context.Background()
	st := s.snapshot()
	stats := map[string]interface{}{
		"started":      started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"training":     s.training.Load(),
		"breakerState": s.breaker.State(),
		"modelTrained": st.model != nil,
		"rankedCount":  s.ranking.Count(ctx),
	}
	if st.store != nil {
		stats["datasetRecords"] = st.report.Loaded
		stats["trainableRecords"] = st.report.Trainable
	}
	if st.model != nil {
		stats["modelVersion"] = st.model.Version
		stats["modelTrainedAt"] = st.model.TrainedAt
	}
	if b := s.lastBatch.Load(); b != nil {
		stats["lastBatch"] = *b
	}

	metrics.UpdateRankedEmployees(s.ranking.Count(ctx))
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
