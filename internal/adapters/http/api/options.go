package api

import (
	"github.com/okian/attrition/pkg/logger"
	"golang.org/x/time/rate"
)

// Option configures a Server.
type Option func(*Server)

// WithMaxRankingLimit caps GET /ranking?limit.
func WithMaxRankingLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRankingLimit = n
		}
	}
}

// WithMaxUploadBytes caps the POST /dataset body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithPredictRateLimit limits POST /predict to perSec requests with burst.
func WithPredictRateLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec > 0 && burst > 0 {
			s.predictLimiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
