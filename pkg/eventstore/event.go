// Package eventstore implements an append-only, stream- and relation-indexed
// event store with snapshot-accelerated reduction and ordered projector
// dispatch. See the package-level subsystems in providers.go, reducer.go,
// aggregate.go and projector for the pieces the facade in store.go composes.
package eventstore

import (
	"encoding/json"
)

// Record is the persistent unit: an immutable fact with headers (id, stream,
// timestamps) and two payload blobs (data, meta).
type Record struct {
	ID      string          `json:"id" db:"id"`
	Stream  string          `json:"stream" db:"stream"`
	Type    string          `json:"type" db:"type"`
	Data    json.RawMessage `json:"data" db:"data"`
	Meta    json.RawMessage `json:"meta" db:"meta"`
	Created string          `json:"created" db:"created"`
	Recorded string         `json:"recorded" db:"recorded"`
}

// PartialRecord is what a caller supplies to makeEvent/addEvent; an empty
// ID or Stream is filled with a freshly generated id, and nil Data or Meta
// with an empty JSON object.
type PartialRecord struct {
	ID     string
	Stream string
	Type   string
	Data   json.RawMessage
	Meta   json.RawMessage
}

// Direction controls read ordering by Created.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Filter narrows a read to a set of event types. A nil/empty Types slice
// means no filtering.
type Filter struct {
	Types []string
}

func (f Filter) matches(eventType string) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == eventType {
			return true
		}
	}
	return false
}

// ReadOptions governs get/getByStream(s)/getByRelations reads. Cursor is
// exclusive and compared against Created; Limit == 0 means unbounded.
type ReadOptions struct {
	Filter    Filter
	Cursor    string
	Direction Direction
	Limit     int
}

// InsertSettings governs addEvent/pushEvent/pushManyEvents/pushAggregate(s).
// Emit defaults to true: set false to opt out of the post-insert hook.
// Batch is an opaque caller-chosen label forwarded to the hook so handlers
// can route coarse-grained groups.
type InsertSettings struct {
	Emit  *bool
	Batch string
}

func (s InsertSettings) emits() bool {
	return s.Emit == nil || *s.Emit
}

// Status describes a record's relationship to the rest of the store, as
// computed by Store.GetEventStatus.
type Status struct {
	Exists   bool
	Outdated bool
	Hydrated bool
}

func makeRecord(p PartialRecord, idGen IDGenerator, clock Clock) Record {
	id := p.ID
	if id == "" {
		id = idGen.Generate()
	}
	stream := p.Stream
	if stream == "" {
		stream = idGen.Generate()
	}
	data := p.Data
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	meta := p.Meta
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	now := clock.Now()
	return Record{
		ID:       id,
		Stream:   stream,
		Type:     p.Type,
		Data:     data,
		Meta:     meta,
		Created:  now,
		Recorded: now,
	}
}

// Hydrate rewrites Recorded to the local clock, marking a record as imported
// from an external source. Created is never modified.
func Hydrate(r Record, clock Clock) Record {
	r.Recorded = clock.Now()
	return r
}
