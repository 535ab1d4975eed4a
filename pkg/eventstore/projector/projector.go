// Package projector implements the dispatch layer (§4.7): ordered delivery
// of inserted records to subscribed handlers, with per-stream FIFO queues
// and batch delivery. Grounded on go-chaos/chaos.go's otel instrumentation
// style and mickamy-go-event-sourcing's metadata/event vocabulary, this is
// new code — the teacher has no projector of its own, so the shape below
// follows spec.md §4.7/§5 directly.
package projector

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

var tracer = otel.Tracer("github.com/libranexus/eventcore/pkg/eventstore/projector")

// Status mirrors eventstore.Status: the hydrated/outdated flags a
// subscription mode filters on.
type Status = eventstore.Status

// Mode is a subscription's acceptance policy for hydrated/outdated records
// (§4.7 table).
type Mode int

const (
	// Once: rejects both hydrated and outdated. Originating-side effects.
	Once Mode = iota
	// Continuous: accepts hydrated, rejects outdated. Read-side projections.
	Continuous
	// All: accepts both. Forensics/audit.
	All
)

func (m Mode) accepts(status Status) bool {
	switch m {
	case Once:
		return !status.Hydrated && !status.Outdated
	case Continuous:
		return !status.Outdated
	case All:
		return true
	default:
		return false
	}
}

// Handler is invoked once per accepted record, for the record's type.
type Handler func(ctx context.Context, r eventstore.Record) error

// OnceEffects are invoked instead of propagating an error for a Once
// subscription: onSuccess after a successful Handler call, onError on
// failure or rejection by a stricter predicate the caller layers on.
type OnceEffects struct {
	OnSuccess func(r eventstore.Record)
	OnError   func(err error, r eventstore.Record)
}

type subscription struct {
	mode     Mode
	types    map[string]struct{}
	handler  Handler
	once     *OnceEffects
	limiter  *rate.Limiter
}

func (s *subscription) matches(r eventstore.Record) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[r.Type]
	return ok
}

// BatchHandler receives an entire slice of records tagged with a given
// batch key in one invocation.
type BatchHandler func(ctx context.Context, records []eventstore.Record) error

// Projector dispatches (record, status) pairs to subscribers with
// per-stream FIFO ordering (§4.7, §5).
type Projector struct {
	mu            sync.RWMutex
	subscriptions []*subscription
	batchHandlers map[string][]BatchHandler

	queues   map[string]*streamQueue
	queuesMu sync.Mutex

	queueCapacity int
	openQueues    metric.Int64UpDownCounter
	dispatched    metric.Int64Counter
}

// Option configures a Projector.
type Option func(*Projector)

// WithQueueCapacity bounds each per-stream channel (default 256).
func WithQueueCapacity(n int) Option {
	return func(p *Projector) { p.queueCapacity = n }
}

// New returns an empty Projector.
func New(opts ...Option) *Projector {
	p := &Projector{
		batchHandlers: make(map[string][]BatchHandler),
		queues:        make(map[string]*streamQueue),
		queueCapacity: 256,
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter("github.com/libranexus/eventcore/pkg/eventstore/projector")
	p.openQueues, _ = meter.Int64UpDownCounter("projector.open_queues")
	p.dispatched, _ = meter.Int64Counter("projector.dispatched_records")
	return p
}

// Subscribe registers a handler for records whose type is in types (any
// type when empty), under the given Mode. For Once subscriptions, effects
// routes success/failure instead of propagating through Push's completion.
func (p *Projector) Subscribe(mode Mode, types []string, handler Handler, effects *OnceEffects) {
	typeSet := make(map[string]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = append(p.subscriptions, &subscription{
		mode: mode, types: typeSet, handler: handler, once: effects,
	})
}

// SubscribeRateLimited is like Subscribe but throttles dispatch to this
// handler via golang.org/x/time/rate, so a bursty replay can't overrun a
// slow downstream handler (e.g. an email sender) — a queue waiting for a
// token stalls only its own stream, but the limiter is shared by every
// stream this subscription receives records from (§5).
func (p *Projector) SubscribeRateLimited(mode Mode, types []string, handler Handler, limit rate.Limit, burst int) {
	typeSet := make(map[string]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = append(p.subscriptions, &subscription{
		mode: mode, types: typeSet, handler: handler, limiter: rate.NewLimiter(limit, burst),
	})
}

// SubscribeBatch registers a handler invoked with the full slice of records
// tagged under key by PushMany.
func (p *Projector) SubscribeBatch(key string, handler BatchHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchHandlers[key] = append(p.batchHandlers[key], handler)
}

// Push enqueues a single record for per-stream FIFO dispatch. It returns
// once the record has been queued, not once handlers have run; call Wait on
// the returned completion to observe handler outcomes (P4).
func (p *Projector) Push(ctx context.Context, r eventstore.Record, status Status) *Completion {
	ctx, span := tracer.Start(ctx, "projector.push", trace.WithAttributes(
		attribute.String("stream", r.Stream),
		attribute.String("type", r.Type),
	))
	defer span.End()

	completion := newCompletion()
	item := dispatchItem{ctx: ctx, record: r, status: status, completion: completion}
	for {
		q := p.queueFor(r.Stream)
		if q.enqueue(ctx, item) {
			break
		}
		// q drained and closed between lookup and enqueue; retry against a
		// freshly created queue for the same stream.
	}
	return completion
}

// PushMany enqueues every record for per-stream dispatch (preserving the
// order given, per §5) and, once each record's own queue has delivered it,
// invokes every batch handler registered under key with the full slice.
func (p *Projector) PushMany(ctx context.Context, key string, records []eventstore.Record, statuses []Status) *Completion {
	ctx, span := tracer.Start(ctx, "projector.push_many", trace.WithAttributes(
		attribute.String("batch_key", key),
		attribute.Int("count", len(records)),
	))
	defer span.End()

	completions := make([]*Completion, len(records))
	for i, r := range records {
		completions[i] = p.Push(ctx, r, statuses[i])
	}

	overall := newCompletion()
	go func() {
		for _, c := range completions {
			if err := c.Wait(); err != nil {
				overall.fail(err)
			}
		}
		p.mu.RLock()
		handlers := append([]BatchHandler(nil), p.batchHandlers[key]...)
		p.mu.RUnlock()
		for _, h := range handlers {
			if err := h(ctx, records); err != nil {
				overall.fail(err)
			}
		}
		overall.done()
	}()
	return overall
}

func (p *Projector) queueFor(stream string) *streamQueue {
	p.queuesMu.Lock()
	defer p.queuesMu.Unlock()

	if q, ok := p.queues[stream]; ok {
		return q
	}
	q := newStreamQueue(p.queueCapacity, p.dispatchOne)
	p.queues[stream] = q
	if p.openQueues != nil {
		p.openQueues.Add(context.Background(), 1)
	}
	q.onDrain = func() {
		p.queuesMu.Lock()
		defer p.queuesMu.Unlock()
		// run() only calls onDrain once it has already marked itself
		// closed, so the entry (if still this exact queue) is safe to drop
		// unconditionally.
		if p.queues[stream] == q {
			delete(p.queues, stream)
		}
		if p.openQueues != nil {
			p.openQueues.Add(context.Background(), -1)
		}
	}
	return q
}

func (p *Projector) dispatchOne(ctx context.Context, item dispatchItem) {
	p.mu.RLock()
	subs := append([]*subscription(nil), p.subscriptions...)
	p.mu.RUnlock()

	var firstErr error
	for _, sub := range subs {
		if !sub.matches(item.record) || !sub.mode.accepts(item.status) {
			continue
		}
		if sub.limiter != nil {
			if err := sub.limiter.Wait(ctx); err != nil {
				continue
			}
		}

		err := invoke(ctx, sub.handler, item.record)
		if p.dispatched != nil {
			p.dispatched.Add(ctx, 1)
		}

		switch {
		case sub.once != nil:
			if err != nil {
				if sub.once.OnError != nil {
					sub.once.OnError(err, item.record)
				}
			} else if sub.once.OnSuccess != nil {
				sub.once.OnSuccess(item.record)
			}
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		item.completion.fail(firstErr)
	} else {
		item.completion.done()
	}
}

func invoke(ctx context.Context, h Handler, r eventstore.Record) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerPanic{Value: rec}
		}
	}()
	return h(ctx, r)
}
