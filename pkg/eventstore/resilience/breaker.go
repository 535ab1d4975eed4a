// Package resilience wraps storage-provider calls with a circuit breaker so
// a failing database fails fast instead of stalling every projector queue
// behind it — adapted from the fault-injection theme of the teacher's
// chaos/experiments.go CircuitBreakerExperiment, using the real
// github.com/sony/gobreaker library the teacher's go.mod already carried
// (previously unwired) instead of hand-rolling one.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a single logical dependency (one sqlstore provider's pool)
// behind a circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// Config tunes the breaker. Zero values fall back to gobreaker's own
// defaults except MaxRequests, which defaults to 1 (half-open probes one
// request at a time), and FailureRatio, which defaults to 0.6.
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureRatio opens the breaker once this fraction of requests in a
	// rolling window fail, with a minimum of 8 requests sampled.
	FailureRatio float64
}

// New builds a Breaker for the given dependency name (e.g. "sqlstore.events").
func New(cfg Config) *Breaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 8 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// ErrOpen is returned when the breaker is open and rejects calls
// without attempting them.
var ErrOpen = gobreaker.ErrOpenState

// Do executes fn through the breaker. A context cancellation inside fn
// propagates as-is; gobreaker's own open-state rejection surfaces as
// ErrOpen.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
		return ErrOpen
	}
	return err
}
