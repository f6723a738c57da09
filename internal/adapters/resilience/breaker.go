// Package resilience guards model inference with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State gauge values reported to metrics.
const (
	StateClosed   = 0
	StateHalfOpen = 1
	StateOpen     = 2
)

// Breaker wraps gobreaker for calls that return a score.
type Breaker struct {
	cb          *gobreaker.CircuitBreaker
	name        string
	maxFailures uint32
	timeout     time.Duration
	halfOpenMax uint32
	logger      logger.Logger
}

// New creates a breaker that trips after consecutive failures.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		name:        "inference",
		maxFailures: 3,
		timeout:     30 * time.Second,
		halfOpenMax: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("breaker")
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.halfOpenMax,
		Timeout:     b.timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= b.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(gauge(to))
			b.logger.Warn(context.Background(), "breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	metrics.UpdateBreakerState(StateClosed)
	return b
}

// Execute runs fn unless the breaker is open. Errors from fn count as failures.
func (b *Breaker) Execute(ctx context.Context, fn func() (float64, error)) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, ErrOpen
		}
		return 0, err
	}
	return out.(float64), nil
}

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func gauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
