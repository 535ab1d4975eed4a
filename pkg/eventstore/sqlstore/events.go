package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Events is the Postgres-backed eventstore.EventProvider (§4.2, §6).
type Events struct{ db *db }

// NewEvents wires a Postgres-backed event provider under the given schema
// namespace.
func NewEvents(conn *sqlx.DB, schema Schema, opts ...Option) *Events {
	return &Events{db: newDB(conn, schema, opts)}
}

func (e *Events) Insert(ctx context.Context, r eventstore.Record) error {
	ctx, span := eventstore.Tracer().Start(ctx, "sqlstore.events.insert", trace.WithAttributes(
		attribute.String("stream", r.Stream),
	))
	defer span.End()

	table := e.db.schema.table("events")
	return e.db.run(ctx, func(ctx context.Context) error {
		_, err := e.db.conn.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, stream, type, data, meta, recorded, created)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, table), r.ID, r.Stream, r.Type, r.Data, r.Meta, r.Recorded, r.Created)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
}

func (e *Events) InsertMany(ctx context.Context, rs []eventstore.Record, batchSize int) error {
	ctx, span := eventstore.Tracer().Start(ctx, "sqlstore.events.insert_many", trace.WithAttributes(
		attribute.Int("count", len(rs)),
	))
	defer span.End()

	if len(rs) == 0 {
		return nil
	}

	table := e.db.schema.table("events")
	return e.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, batch := range batches(rs, batchSize) {
			if err := insertEventBatch(tx, table, batch); err != nil {
				span.RecordError(err)
				return err
			}
		}
		return nil
	})
}

func insertEventBatch(tx *sqlx.Tx, table string, batch []eventstore.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (id, stream, type, data, meta, recorded, created) VALUES ", table)
	args := make([]any, 0, len(batch)*7)
	for i, r := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, r.ID, r.Stream, r.Type, r.Data, r.Meta, r.Recorded, r.Created)
	}
	if _, err := tx.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("insert event batch: %w", err)
	}
	return nil
}

func (e *Events) Get(ctx context.Context, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	return e.query(ctx, "", nil, opts)
}

func (e *Events) GetByStream(ctx context.Context, stream string, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	return e.query(ctx, "stream = ANY($%d)", pq.Array([]string{stream}), opts)
}

func (e *Events) GetByStreams(ctx context.Context, streams []string, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	if len(streams) == 0 {
		return nil, nil
	}
	return e.query(ctx, "stream = ANY($%d)", pq.Array(streams), opts)
}

// query builds and executes a SELECT against the events table. streamCond,
// when non-empty, is a fmt-style fragment ("stream = ANY($%d)") taking the
// next placeholder index; streamArg is its bound value.
func (e *Events) query(ctx context.Context, streamCond string, streamArg any, opts eventstore.ReadOptions) ([]eventstore.Record, error) {
	ctx, span := eventstore.Tracer().Start(ctx, "sqlstore.events.query")
	defer span.End()

	table := e.db.schema.table("events")
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, stream, type, data, meta, recorded, created FROM %s WHERE true", table)

	var args []any
	if streamCond != "" {
		args = append(args, streamArg)
		fmt.Fprintf(&sb, " AND %s", fmt.Sprintf(streamCond, len(args)))
	}
	if opts.Cursor != "" {
		args = append(args, opts.Cursor)
		fmt.Fprintf(&sb, " AND created > $%d", len(args))
	}
	if len(opts.Filter.Types) > 0 {
		args = append(args, pq.Array(opts.Filter.Types))
		fmt.Fprintf(&sb, " AND type = ANY($%d)", len(args))
	}

	if opts.Direction == eventstore.Descending {
		sb.WriteString(" ORDER BY created DESC")
	} else {
		sb.WriteString(" ORDER BY created ASC")
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	var out []eventstore.Record
	err := e.db.run(ctx, func(ctx context.Context) error {
		rows, err := e.db.conn.QueryxContext(ctx, sb.String(), args...)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r eventstore.Record
			if err := rows.StructScan(&r); err != nil {
				return fmt.Errorf("scan event: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (e *Events) GetByID(ctx context.Context, id string) (*eventstore.Record, error) {
	ctx, span := eventstore.Tracer().Start(ctx, "sqlstore.events.get_by_id")
	defer span.End()

	table := e.db.schema.table("events")
	var r eventstore.Record
	err := e.db.run(ctx, func(ctx context.Context) error {
		err := e.db.conn.QueryRowxContext(ctx, fmt.Sprintf(`
			SELECT id, stream, type, data, meta, recorded, created FROM %s WHERE id = $1
		`, table), id).StructScan(&r)
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	if r.ID == "" {
		return nil, nil
	}
	return &r, nil
}

func (e *Events) CheckOutdated(ctx context.Context, r eventstore.Record) (bool, error) {
	ctx, span := eventstore.Tracer().Start(ctx, "sqlstore.events.check_outdated")
	defer span.End()

	table := e.db.schema.table("events")
	var count int
	err := e.db.run(ctx, func(ctx context.Context) error {
		return e.db.conn.GetContext(ctx, &count, fmt.Sprintf(`
			SELECT COUNT(*) FROM %s WHERE stream = $1 AND type = $2 AND created > $3
		`, table), r.Stream, r.Type, r.Created)
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("check outdated: %w", err)
	}
	return count > 0, nil
}

var _ eventstore.EventProvider = (*Events)(nil)
