// Package memstore is an in-process implementation of the three storage
// provider contracts, concurrency-safe and suitable for tests and
// prototypes. Events, relations and snapshots are lost on restart, grounded
// on mickamy-go-event-sourcing/stores/mem's in-memory EventStore.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Events is an in-memory eventstore.EventProvider.
type Events struct {
	mu      sync.RWMutex
	records []eventstore.Record
	byID    map[string]int
}

// NewEvents returns an empty in-memory event provider.
func NewEvents() *Events {
	return &Events{byID: make(map[string]int)}
}

func (e *Events) Insert(_ context.Context, r eventstore.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertLocked(r)
}

func (e *Events) insertLocked(r eventstore.Record) error {
	if _, exists := e.byID[r.ID]; exists {
		return &duplicateIDError{id: r.ID}
	}
	e.byID[r.ID] = len(e.records)
	e.records = append(e.records, r)
	return nil
}

func (e *Events) InsertMany(_ context.Context, rs []eventstore.Record, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// All-or-nothing: check every id before inserting any, so a rejected
	// batch never partially mutates byID/records.
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if _, exists := e.byID[r.ID]; exists {
			return &duplicateIDError{id: r.ID}
		}
		if _, dup := seen[r.ID]; dup {
			return &duplicateIDError{id: r.ID}
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range rs {
		_ = e.insertLocked(r)
	}
	return nil
}

func (e *Events) Get(_ context.Context, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return filterSort(e.records, nil, opts), nil
}

func (e *Events) GetByStream(_ context.Context, stream string, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	streams := map[string]struct{}{stream: {}}
	return filterSort(e.records, streams, opts), nil
}

func (e *Events) GetByStreams(_ context.Context, streams []string, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		set[s] = struct{}{}
	}
	return filterSort(e.records, set, opts), nil
}

func (e *Events) GetByID(_ context.Context, id string) (*eventstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.byID[id]
	if !ok {
		return nil, nil
	}
	r := e.records[idx]
	return &r, nil
}

func (e *Events) CheckOutdated(_ context.Context, r eventstore.Record) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, other := range e.records {
		if other.Stream == r.Stream && other.Type == r.Type && other.Created > r.Created {
			return true, nil
		}
	}
	return false, nil
}

func filterSort(records []eventstore.Record, streams map[string]struct{}, opts eventstore.ReadOptions) []eventstore.Record {
	out := make([]eventstore.Record, 0, len(records))
	for _, r := range records {
		if streams != nil {
			if _, ok := streams[r.Stream]; !ok {
				continue
			}
		}
		if opts.Cursor != "" && r.Created <= opts.Cursor {
			continue
		}
		if len(opts.Filter.Types) > 0 && !containsType(opts.Filter.Types, r.Type) {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if opts.Direction == eventstore.Descending {
			return out[i].Created > out[j].Created
		}
		return out[i].Created < out[j].Created
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func containsType(types []string, t string) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

type duplicateIDError struct{ id string }

func (e *duplicateIDError) Error() string { return "memstore: duplicate event id " + e.id }
