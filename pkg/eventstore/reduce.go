package eventstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotMode controls whether Reduce persists a new snapshot after
// folding. Manual is the recommended default (spec.md §9 design note: auto
// mode writes a snapshot on every Reduce that processed at least one event,
// which can be chatty).
type SnapshotMode int

const (
	SnapshotManual SnapshotMode = iota
	SnapshotAuto
)

// ReduceOptions parameterizes Store.Reduce.
type ReduceOptions struct {
	Name     string
	Target   Target
	Reducer  Reducer
	Filter   Filter
	Snapshot SnapshotMode
}

// ErrNoState is returned by Reduce when there is neither a snapshot nor any
// events to fold — "none" in spec.md §4.1 step 3.
var ErrNoState = fmt.Errorf("eventstore: no state")

// Reduce implements spec.md §4.1's five-step reduce algorithm: fetch the
// newest snapshot, fetch events after its cursor (type-filtered, with
// pending appended), fold, and optionally persist a new snapshot when
// opts.Snapshot is SnapshotAuto.
func (s *Store) Reduce(ctx context.Context, opts ReduceOptions, pending []Record) (any, error) {
	ctx, span := tracer.Start(ctx, "eventstore.reduce", trace.WithAttributes(
		attribute.String("reducer", opts.Name),
	))
	defer span.End()

	snap, err := s.snapshots.GetByStream(ctx, opts.Name, opts.Target.Key())
	if err != nil {
		return nil, fmt.Errorf("eventstore: reduce: fetch snapshot: %w", err)
	}

	events, err := s.readTarget(ctx, opts.Target, ReadOptions{
		Filter:    opts.Filter,
		Cursor:    cursorOf(snap),
		Direction: Ascending,
	})
	if err != nil {
		return nil, fmt.Errorf("eventstore: reduce: fetch events: %w", err)
	}
	events = append(events, pending...)

	if len(events) == 0 {
		if snap != nil {
			state, err := opts.Reducer.From(snap.State)
			if err != nil {
				return nil, fmt.Errorf("eventstore: reduce: rehydrate snapshot: %w", err)
			}
			return state, nil
		}
		return nil, ErrNoState
	}

	var snapState any
	if snap != nil {
		snapState, err = opts.Reducer.From(snap.State)
		if err != nil {
			return nil, fmt.Errorf("eventstore: reduce: rehydrate snapshot: %w", err)
		}
	}

	state, err := opts.Reducer.Reduce(events, snapState)
	if err != nil {
		return nil, fmt.Errorf("eventstore: reduce: fold: %w", err)
	}

	if opts.Snapshot == SnapshotAuto {
		if err := s.persistSnapshot(ctx, opts.Name, opts.Target, state, events[len(events)-1].Created); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// CreateSnapshot is the explicit variant of the snapshot-write half of
// Reduce: a no-op on an empty event set.
func (s *Store) CreateSnapshot(ctx context.Context, opts ReduceOptions) error {
	snap, err := s.snapshots.GetByStream(ctx, opts.Name, opts.Target.Key())
	if err != nil {
		return fmt.Errorf("eventstore: create snapshot: fetch snapshot: %w", err)
	}

	events, err := s.readTarget(ctx, opts.Target, ReadOptions{
		Filter:    opts.Filter,
		Cursor:    cursorOf(snap),
		Direction: Ascending,
	})
	if err != nil {
		return fmt.Errorf("eventstore: create snapshot: fetch events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	var snapState any
	if snap != nil {
		snapState, err = opts.Reducer.From(snap.State)
		if err != nil {
			return fmt.Errorf("eventstore: create snapshot: rehydrate snapshot: %w", err)
		}
	}

	state, err := opts.Reducer.Reduce(events, snapState)
	if err != nil {
		return fmt.Errorf("eventstore: create snapshot: fold: %w", err)
	}

	return s.persistSnapshot(ctx, opts.Name, opts.Target, state, events[len(events)-1].Created)
}

// GetSnapshot returns the persisted snapshot row for (name, target), or nil
// when none exists.
func (s *Store) GetSnapshot(ctx context.Context, name string, target Target) (*SnapshotRow, error) {
	return s.snapshots.GetByStream(ctx, name, target.Key())
}

// DeleteSnapshot removes all snapshot rows for (name, target).
func (s *Store) DeleteSnapshot(ctx context.Context, name string, target Target) error {
	return s.snapshots.Remove(ctx, name, target.Key())
}

func (s *Store) readTarget(ctx context.Context, target Target, opts ReadOptions) ([]Record, error) {
	if target.IsRelation() {
		return s.GetEventsByRelations(ctx, []string{target.Key()}, opts)
	}
	return s.events.GetByStream(ctx, target.Key(), opts)
}

func (s *Store) persistSnapshot(ctx context.Context, name string, target Target, state any, cursor string) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("eventstore: encode snapshot state: %w", err)
	}
	row := SnapshotRow{Name: name, Stream: target.Key(), Cursor: cursor, State: blob}
	if err := s.snapshots.Insert(ctx, row); err != nil {
		return fmt.Errorf("eventstore: persist snapshot: %w", err)
	}
	return nil
}

func cursorOf(snap *SnapshotRow) string {
	if snap == nil {
		return ""
	}
	return snap.Cursor
}
