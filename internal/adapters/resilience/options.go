package resilience

import (
	"time"

	"github.com/okian/attrition/pkg/logger"
)

// Option configures a Breaker.
type Option func(*Breaker)

// WithName sets the breaker name used in logs.
func WithName(name string) Option {
	return func(b *Breaker) {
		if name != "" {
			b.name = name
		}
	}
}

// WithMaxFailures sets how many consecutive failures open the breaker.
func WithMaxFailures(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithTimeout sets how long the breaker stays open before probing.
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithHalfOpenRequests sets how many probes pass while half-open.
func WithHalfOpenRequests(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.halfOpenMax = n
		}
	}
}

// WithLogger overrides the breaker logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Breaker) {
		if l != nil {
			b.logger = l
		}
	}
}
