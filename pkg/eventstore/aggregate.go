package eventstore

// Aggregate is an object-shaped reducer carrying both derived state and a
// pending buffer of new events (§4.6, glossary). It must not own a store
// reference — the store is passed explicitly to commit/snapshot paths, so
// the aggregate <-> store reference cycle the teacher's source warned about
// never forms.
type Aggregate interface {
	// Stream returns the stream id this aggregate's events belong to.
	Stream() string

	// With applies a single event deterministically, with no I/O. Used both
	// during replay (rehydration) and for the locally-pushed event.
	With(r Record)

	// Pending returns the buffer of records not yet persisted.
	Pending() []Record

	// Flush clears the pending buffer.
	Flush()
}

// AggregateBase is an embeddable helper implementing the pending-buffer
// bookkeeping of Aggregate, grounded on the push/flush split in
// mickamy-go-event-sourcing/base.go's Base type.
type AggregateBase struct {
	stream  string
	pending []Record
	applier func(Record)
	idGen   IDGenerator
	clock   Clock
}

// InitAggregateBase wires the stream id and the state-mutation function
// (applier) an embedding aggregate type supplies. idGen/clock default to the
// package's standard Clock/IDGenerator when nil, matching what Store uses
// internally so locally-pushed events carry ordinary headers.
func InitAggregateBase(stream string, applier func(Record), idGen IDGenerator, clock Clock) AggregateBase {
	if idGen == nil {
		idGen = NewIDGenerator(0)
	}
	if clock == nil {
		clock = NewClock()
	}
	return AggregateBase{stream: stream, applier: applier, idGen: idGen, clock: clock}
}

func (b *AggregateBase) Stream() string { return b.stream }

// With mutates state via the applier; it does not enqueue — call Push for
// newly produced events.
func (b *AggregateBase) With(r Record) {
	if b.applier != nil {
		b.applier(r)
	}
}

// Push fills in a fresh record for partial, appends it to the pending
// buffer, and applies it locally so the in-memory instance reflects the
// uncommitted change, per spec.md §4.6.
func (b *AggregateBase) Push(partial PartialRecord) Record {
	if partial.Stream == "" {
		partial.Stream = b.stream
	}
	r := makeRecord(partial, b.idGen, b.clock)
	b.pending = append(b.pending, r)
	b.With(r)
	return r
}

func (b *AggregateBase) Pending() []Record { return b.pending }

func (b *AggregateBase) Flush() { b.pending = nil }
