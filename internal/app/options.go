package service

import (
	"github.com/okian/attrition/internal/adapters/repository"
	"github.com/okian/attrition/internal/adapters/resilience"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/scoring"
	"github.com/okian/attrition/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTrainingConfig sets the classifier configuration used by Train.
func WithTrainingConfig(cfg classifier.Config) Option {
	return func(s *Service) {
		s.trainCfg = cfg
	}
}

// WithRiskThreshold sets the probability cutoff of the high-risk flag.
func WithRiskThreshold(th float64) Option {
	return func(s *Service) {
		if th >= 0 && th <= 1 {
			s.trainCfg.Threshold = th
		}
	}
}

// WithNoiseStd sets the perturbation noise of importance estimation.
func WithNoiseStd(std float64) Option {
	return func(s *Service) {
		if std > 0 {
			s.noiseStd = std
		}
	}
}

// WithRegistry persists trained models and restores the active one on Start.
func WithRegistry(r ModelRegistry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithBreaker sets the circuit breaker guarding model inference.
func WithBreaker(b *resilience.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithRuleScorer replaces the fallback scorer.
func WithRuleScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.rules = sc
		}
	}
}

// WithRanking replaces the risk ranking store.
func WithRanking(r repository.Store) Option {
	return func(s *Service) {
		if r != nil {
			s.ranking = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
