package eventstore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store is the event store facade (§4.1): it composes the validator, the
// three storage providers and the post-insert hook, and exposes the
// append/query/reduce API every other subsystem is reached through.
type Store struct {
	events    EventProvider
	relations RelationsProvider
	snapshots SnapshotsProvider
	validator *Validator
	hooks     Hooks
	clock     Clock
	idGen     IDGenerator
}

// Option configures a Store, grounded on the functional-options pattern in
// mickamy-go-event-sourcing/stores/pgx/pgx_store.go.
type Option func(*Store)

func WithHooks(h Hooks) Option { return func(s *Store) { s.hooks = h } }
func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }
func WithIDGenerator(g IDGenerator) Option { return func(s *Store) { s.idGen = g } }

// NewStore wires the three storage providers and the validator registry
// into a Store.
func NewStore(events EventProvider, relations RelationsProvider, snapshots SnapshotsProvider, validator *Validator, opts ...Option) *Store {
	s := &Store{
		events:    events,
		relations: relations,
		snapshots: snapshots,
		validator: validator,
		clock:     NewClock(),
		idGen:     NewIDGenerator(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasEventType reports whether t is a member of the registered event-type
// set.
func (s *Store) HasEventType(t string) bool {
	return s.validator.HasEventType(t)
}

// MakeEvent fills in id, stream (generated if absent), created = recorded =
// now, and empty data/meta if omitted. It has no side effects.
func (s *Store) MakeEvent(p PartialRecord) Record {
	return makeRecord(p, s.idGen, s.clock)
}

// AddEvent is MakeEvent followed by PushEvent.
func (s *Store) AddEvent(ctx context.Context, p PartialRecord, settings InsertSettings) (Record, error) {
	r := s.MakeEvent(p)
	if err := s.PushEvent(ctx, r, settings); err != nil {
		return Record{}, err
	}
	return r, nil
}

// AddManyEvents is MakeEvent for each partial, then PushManyEvents.
func (s *Store) AddManyEvents(ctx context.Context, ps []PartialRecord, settings InsertSettings) ([]Record, error) {
	records := make([]Record, len(ps))
	for i, p := range ps {
		records[i] = s.MakeEvent(p)
	}
	if err := s.PushManyEvents(ctx, records, settings); err != nil {
		return nil, err
	}
	return records, nil
}

// PushEvent validates type registration, validates data+meta schemas,
// inserts via the event provider, then awaits the post-insert hook.
func (s *Store) PushEvent(ctx context.Context, r Record, settings InsertSettings) error {
	ctx, span := tracer.Start(ctx, "eventstore.push_event", trace.WithAttributes(
		attribute.String("stream", r.Stream),
		attribute.String("type", r.Type),
	))
	defer span.End()

	if err := s.validateOne(r); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.events.Insert(ctx, r); err != nil {
		wrapped := &InsertionError{Cause: err}
		span.RecordError(wrapped)
		return wrapped
	}

	s.hooks.invoke(ctx, []Record{r}, settings)
	return nil
}

// PushManyEvents validates every record first; only then hands the entire
// slice to the provider's transactional batch insert. The post-insert hook
// is invoked once with the full slice, in the order given (§5). If any
// validation fails, no events are inserted (§7).
func (s *Store) PushManyEvents(ctx context.Context, rs []Record, settings InsertSettings) error {
	ctx, span := tracer.Start(ctx, "eventstore.push_many_events", trace.WithAttributes(
		attribute.Int("count", len(rs)),
	))
	defer span.End()

	for _, r := range rs {
		if err := s.validateOne(r); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if len(rs) == 0 {
		return nil
	}

	if err := s.events.InsertMany(ctx, rs, 0); err != nil {
		wrapped := &InsertionError{Cause: err}
		span.RecordError(wrapped)
		return wrapped
	}

	s.hooks.invoke(ctx, rs, settings)
	return nil
}

// validateOne enforces hasEventType then the data/meta schemas, per §7:
// UnknownEventType and ValidationFailure are surfaced synchronously, before
// any I/O. Per the open question in spec.md §9, this applies to every
// pushEvent/pushManyEvents record — no caller bypasses hasEventType.
func (s *Store) validateOne(r Record) error {
	if !s.validator.HasEventType(r.Type) {
		return &UnknownEventTypeError{Type: r.Type}
	}
	if verr := s.validator.Validate(r); verr != nil {
		return verr
	}
	return nil
}

// PushAggregate drains the aggregate's pending buffer, pushes them through
// PushManyEvents, then flushes the aggregate on success.
func (s *Store) PushAggregate(ctx context.Context, agg Aggregate, settings InsertSettings) error {
	pending := agg.Pending()
	if len(pending) == 0 {
		return nil
	}
	if err := s.PushManyEvents(ctx, pending, settings); err != nil {
		return err
	}
	agg.Flush()
	return nil
}

// PushManyAggregates gathers pending events from all aggregates in list
// order, inserts them in a single transaction, then flushes each aggregate.
// This is the atomic multi-aggregate commit primitive (§4.1, §5).
func (s *Store) PushManyAggregates(ctx context.Context, aggs []Aggregate, settings InsertSettings) error {
	var all []Record
	for _, agg := range aggs {
		all = append(all, agg.Pending()...)
	}
	if len(all) == 0 {
		return nil
	}
	if err := s.PushManyEvents(ctx, all, settings); err != nil {
		return err
	}
	for _, agg := range aggs {
		agg.Flush()
	}
	return nil
}

// GetEventStatus reports Exists (lookup by id) and Outdated (true iff the
// store holds another record with the same (stream, type) and a strictly
// greater Created), per spec.md §4.1 and the P9 property.
func (s *Store) GetEventStatus(ctx context.Context, r Record) (Status, error) {
	existing, err := s.events.GetByID(ctx, r.ID)
	if err != nil {
		return Status{}, fmt.Errorf("eventstore: get event status: %w", err)
	}
	if existing == nil {
		return Status{Exists: false}, nil
	}

	outdated, err := s.events.CheckOutdated(ctx, *existing)
	if err != nil {
		return Status{}, fmt.Errorf("eventstore: check outdated: %w", err)
	}

	hydrated := existing.Recorded != existing.Created
	return Status{Exists: true, Outdated: outdated, Hydrated: hydrated}, nil
}

// GetEvents is a thin adapter onto the event provider's Get.
func (s *Store) GetEvents(ctx context.Context, opts ReadOptions) ([]Record, error) {
	return s.events.Get(ctx, opts)
}

// GetEventsByStreams is a thin adapter onto the event provider's
// GetByStreams.
func (s *Store) GetEventsByStreams(ctx context.Context, streams []string, opts ReadOptions) ([]Record, error) {
	return s.events.GetByStreams(ctx, streams, opts)
}

// GetEventsByRelations first resolves keys -> stream ids via the relations
// provider, returning empty when none resolve (§4.1, P8).
func (s *Store) GetEventsByRelations(ctx context.Context, keys []string, opts ReadOptions) ([]Record, error) {
	streams, err := s.relations.GetByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("eventstore: resolve relations: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return s.events.GetByStreams(ctx, streams, opts)
}

// Relations exposes the underlying relations provider for callers that
// maintain relations directly (projection handlers typically do).
func (s *Store) Relations() RelationsProvider { return s.relations }

// Events exposes the underlying event provider.
func (s *Store) Events() EventProvider { return s.events }
