package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/okian/attrition/internal/adapters/resilience"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/risk"
	"github.com/okian/attrition/internal/domain/scoring"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
)

// Fallback reasons reported on RULE assessments.
const (
	ReasonNoModel     = "no_model"
	ReasonBreakerOpen = "breaker_open"
	ReasonShape       = "shape_mismatch"
	ReasonEncoding    = "encoding_error"
	ReasonPrediction  = "prediction_error"
)

// Predict scores one employee. The model path runs through the circuit
// breaker; any failure downgrades to the rule scorer. It never fails.
func (s *Service) Predict(ctx context.Context, in model.RawEmployeeInput) model.RiskAssessment {
	return s.assess(ctx, in.Record())
}

// Assess scores a full record. It is the worker pool's scoring hook and
// fails only when ctx is done.
func (s *Service) Assess(ctx context.Context, rec model.EmployeeRecord) (model.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return model.RiskAssessment{}, err
	}
	return s.assess(ctx, rec), nil
}

// Explain lists the contributions of the configured rule scorer under the
// published importance, largest first. A scorer that cannot explain itself
// yields nil.
func (s *Service) Explain(in model.RawEmployeeInput) []scoring.Contribution {
	ex, ok := s.rules.(scoring.Explainer)
	if !ok {
		return nil
	}
	out := ex.Explain(in, s.Importance())
	sortContributions(out)
	return out
}

func (s *Service) assess(ctx context.Context, rec model.EmployeeRecord) model.RiskAssessment {
	start := time.Now()
	st := s.snapshot()

	var a model.RiskAssessment
	if st.model == nil {
		a = s.ruleAssessment(ctx, rec, st.weights, ReasonNoModel)
	} else {
		p, err := s.breaker.Execute(ctx, func() (float64, error) {
			return st.model.PredictRecord(rec)
		})
		if err != nil {
			reason := fallbackReason(err)
			s.logger.Debug(ctx, "model prediction failed, using rules",
				logger.String("employee", rec.EmployeeID),
				logger.String("reason", reason),
				logger.Error(err),
			)
			a = s.ruleAssessment(ctx, rec, st.weights, reason)
		} else {
			a = risk.Classify(p, model.SourceModel)
			a.Flagged = st.model.Flag(p)
		}
	}

	metrics.RecordPrediction(string(a.Source), string(a.Level), float64(time.Since(start).Microseconds())/1000)
	if a.FallbackReason != "" {
		metrics.RecordFallback(a.FallbackReason)
	}
	return a
}

func (s *Service) ruleAssessment(ctx context.Context, rec model.EmployeeRecord, weights importance.Set, reason string) model.RiskAssessment {
	score, err := s.rules.Score(ctx, rec.Input(), weights)
	if err != nil {
		s.logger.Warn(ctx, "rule scorer failed", logger.Error(err))
		score = 0.5
	}
	a := risk.Classify(score, model.SourceRule)
	a.Flagged = a.Score >= s.threshold()
	a.FallbackReason = reason
	return a
}

func (s *Service) threshold() float64 {
	if s.trainCfg.Threshold > 0 {
		return s.trainCfg.Threshold
	}
	return classifier.DefaultConfig().Threshold
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, resilience.ErrOpen):
		return ReasonBreakerOpen
	case errors.Is(err, classifier.ErrShape), errors.Is(err, encoding.ErrShapeMismatch):
		return ReasonShape
	case errors.Is(err, encoding.ErrEncoding):
		return ReasonEncoding
	default:
		return ReasonPrediction
	}
}

func sortContributions(cs []scoring.Contribution) {
	slices.SortStableFunc(cs, func(a, b scoring.Contribution) int {
		return cmp.Compare(b.Contribution, a.Contribution)
	})
}
