package eventstore

import "context"

// EventProvider persists event records and answers stream/relation/id/
// cursor queries over them (§4.2).
type EventProvider interface {
	Insert(ctx context.Context, r Record) error

	// InsertMany executes in a single transaction, in contiguous batches of
	// batchSize (default 1000 when batchSize <= 0). All-or-nothing.
	InsertMany(ctx context.Context, rs []Record, batchSize int) error

	Get(ctx context.Context, opts ReadOptions) ([]Record, error)
	GetByStream(ctx context.Context, stream string, opts ReadOptions) ([]Record, error)
	GetByStreams(ctx context.Context, streams []string, opts ReadOptions) ([]Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)

	// CheckOutdated reports whether the store holds another record with the
	// same (stream, type) and a strictly greater Created.
	CheckOutdated(ctx context.Context, r Record) (bool, error)
}

// Pair is a (key, stream) relation row (§4.3).
type Pair struct {
	Key    string
	Stream string
}

// RelationOp is a single insert or remove operation for RelationsProvider.Apply.
type RelationOp struct {
	Pair   Pair
	Remove bool
}

// RelationsProvider maintains the many-to-many key -> stream mapping (§4.3).
type RelationsProvider interface {
	// Apply partitions ops into inserts and removes and runs them
	// concurrently.
	Apply(ctx context.Context, ops []RelationOp, batchSize int) error

	Insert(ctx context.Context, key, stream string) error
	Remove(ctx context.Context, key, stream string) error

	// InsertMany is transactional and batched; duplicates are silently
	// skipped (relations are unique on (key, stream)).
	InsertMany(ctx context.Context, pairs []Pair, batchSize int) error
	// RemoveMany is transactional and batched; each batch deletes rows
	// matching any (key, stream) pair in that batch.
	RemoveMany(ctx context.Context, pairs []Pair, batchSize int) error

	GetByKey(ctx context.Context, key string) ([]Pair, error)
	// GetByKeys returns the distinct stream set across all given keys.
	GetByKeys(ctx context.Context, keys []string) ([]string, error)

	RemoveByKeys(ctx context.Context, keys []string) error
	RemoveByStreams(ctx context.Context, streams []string) error
}

// SnapshotRow is a (name, stream, cursor, state) row (§3).
type SnapshotRow struct {
	Name   string
	Stream string
	Cursor string
	State  []byte
}

// SnapshotsProvider persists and fetches the most recent (reducer-name,
// stream) state+cursor (§4.4). Writers only insert; readers always take the
// most recently inserted row.
type SnapshotsProvider interface {
	Insert(ctx context.Context, row SnapshotRow) error
	GetByStream(ctx context.Context, name, stream string) (*SnapshotRow, error)
	Remove(ctx context.Context, name, stream string) error
}

// Target is a stream id or a relational key, modeled as a sum type so the
// "both at once" ambiguity spec.md §9 calls out as an open question is
// unrepresentable: a Target is exactly one of the two.
type Target struct {
	stream   string
	relation string
	isRel    bool
}

// StreamTarget builds a Target addressing a single event stream.
func StreamTarget(stream string) Target { return Target{stream: stream} }

// RelationTarget builds a Target addressing a relational key (resolved to
// its current stream set at read time).
func RelationTarget(key string) Target { return Target{relation: key, isRel: true} }

// Key returns the opaque string storage providers index snapshots by: the
// stream id, or the relation key itself when the target is relational.
func (t Target) Key() string {
	if t.isRel {
		return t.relation
	}
	return t.stream
}

func (t Target) IsRelation() bool { return t.isRel }
