// Package chaostest runs fault-injection experiments against an
// eventstore.Store: each experiment states a hypothesis about how the store
// should behave under a specific failure mode, injects that failure, and
// validates the hypothesis held. Grounded on go-chaos/chaos.go's
// ChaosEngine/ChaosExperiment shape, retargeted from the library-circulation
// domain to the event store's own properties (P3 atomic batch rollback, P6
// breaker-open degradation).
package chaostest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Experiment is a single chaos run: a hypothesis, a steady-state check taken
// before and after, a fault injection, and a set of assertions against the
// post-fault steady state.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Inject      func(ctx context.Context) error
	Rollback    func(ctx context.Context) error
	Validate    []Assertion
	BlastRadius float64 // 0.0-1.0, fraction of streams/requests the fault touches
}

// Metric is a measurable property of the store, sampled before and after
// fault injection.
type Metric struct {
	Name  string
	Query func(ctx context.Context) (float64, error)
}

// Assertion checks a named metric's post-fault value.
type Assertion struct {
	Metric    string
	Condition func(v float64) bool
	Message   string
}

// Result captures one experiment's outcome.
type Result struct {
	ExperimentName string
	StartedAt      time.Time
	Duration       time.Duration
	HypothesisHeld bool
	Violations     []string
	Before         map[string]float64
	After          map[string]float64
}

// Engine runs registered experiments and records their results.
type Engine struct {
	tracer      trace.Tracer
	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

func NewEngine() *Engine {
	return &Engine{tracer: otel.Tracer("github.com/libranexus/eventcore/internal/chaostest")}
}

func (e *Engine) Register(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exp)
}

// Run executes every registered experiment in sequence and returns their
// results; a later experiment still runs even if an earlier one's hypothesis
// did not hold.
func (e *Engine) Run(ctx context.Context) []Result {
	e.mu.Lock()
	experiments := append([]Experiment(nil), e.experiments...)
	e.mu.Unlock()

	results := make([]Result, 0, len(experiments))
	for _, exp := range experiments {
		results = append(results, e.runOne(ctx, exp))
	}

	e.mu.Lock()
	e.results = append(e.results, results...)
	e.mu.Unlock()
	return results
}

func (e *Engine) runOne(ctx context.Context, exp Experiment) Result {
	ctx, span := e.tracer.Start(ctx, "chaostest.run", trace.WithAttributes(
		attribute.String("experiment", exp.Name),
		attribute.Float64("blast_radius", exp.BlastRadius),
	))
	defer span.End()

	result := Result{ExperimentName: exp.Name, StartedAt: timeNow(), Before: map[string]float64{}, After: map[string]float64{}}
	for _, m := range exp.SteadyState {
		v, err := m.Query(ctx)
		if err != nil {
			span.RecordError(err)
			continue
		}
		result.Before[m.Name] = v
	}

	if err := exp.Inject(ctx); err != nil {
		span.RecordError(err)
		result.Violations = append(result.Violations, fmt.Sprintf("injection failed: %v", err))
	}
	if exp.Rollback != nil {
		defer func() {
			if err := exp.Rollback(ctx); err != nil {
				span.RecordError(err)
			}
		}()
	}

	for _, m := range exp.SteadyState {
		v, err := m.Query(ctx)
		if err != nil {
			span.RecordError(err)
			continue
		}
		result.After[m.Name] = v
	}

	result.HypothesisHeld = true
	for _, a := range exp.Validate {
		v := result.After[a.Metric]
		if !a.Condition(v) {
			result.HypothesisHeld = false
			result.Violations = append(result.Violations, a.Message)
		}
	}
	result.Duration = timeNow().Sub(result.StartedAt)
	return result
}

// timeNow is a seam so tests can observe deterministic durations; production
// callers get wall-clock time.
var timeNow = time.Now
