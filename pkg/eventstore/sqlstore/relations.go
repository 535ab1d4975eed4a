package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Relations is the Postgres-backed eventstore.RelationsProvider (§4.3, §6).
// Row identity uses github.com/google/uuid, the same as the teacher's
// domain row ids (internal/catalog/domain.go's Item.ID) — distinct from the
// event-domain Record.ID, which uses the short opaque scheme of §6.
type Relations struct{ db *db }

func NewRelations(conn *sqlx.DB, schema Schema, opts ...Option) *Relations {
	return &Relations{db: newDB(conn, schema, opts)}
}

func (r *Relations) Apply(ctx context.Context, ops []eventstore.RelationOp, batchSize int) error {
	var inserts, removes []eventstore.Pair
	for _, op := range ops {
		if op.Remove {
			removes = append(removes, op.Pair)
		} else {
			inserts = append(inserts, op.Pair)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.InsertMany(ctx, inserts, batchSize) })
	g.Go(func() error { return r.RemoveMany(ctx, removes, batchSize) })
	return g.Wait()
}

func (r *Relations) Insert(ctx context.Context, key, stream string) error {
	return r.InsertMany(ctx, []eventstore.Pair{{Key: key, Stream: stream}}, 0)
}

func (r *Relations) Remove(ctx context.Context, key, stream string) error {
	return r.RemoveMany(ctx, []eventstore.Pair{{Key: key, Stream: stream}}, 0)
}

func (r *Relations) InsertMany(ctx context.Context, pairs []eventstore.Pair, batchSize int) error {
	if len(pairs) == 0 {
		return nil
	}
	table := r.db.schema.table("relations")
	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, batch := range batches(pairs, batchSize) {
			var sb strings.Builder
			fmt.Fprintf(&sb, "INSERT INTO %s (id, key, stream) VALUES ", table)
			args := make([]any, 0, len(batch)*3)
			for i, p := range batch {
				if i > 0 {
					sb.WriteString(", ")
				}
				base := i * 3
				fmt.Fprintf(&sb, "($%d, $%d, $%d)", base+1, base+2, base+3)
				args = append(args, uuid.New(), p.Key, p.Stream)
			}
			sb.WriteString(" ON CONFLICT (key, stream) DO NOTHING")
			if _, err := tx.Exec(sb.String(), args...); err != nil {
				return fmt.Errorf("insert relation batch: %w", err)
			}
		}
		return nil
	})
}

func (r *Relations) RemoveMany(ctx context.Context, pairs []eventstore.Pair, batchSize int) error {
	if len(pairs) == 0 {
		return nil
	}
	table := r.db.schema.table("relations")
	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, batch := range batches(pairs, batchSize) {
			keys := make([]string, len(batch))
			streams := make([]string, len(batch))
			for i, p := range batch {
				keys[i], streams[i] = p.Key, p.Stream
			}
			_, err := tx.Exec(fmt.Sprintf(`
				DELETE FROM %s WHERE (key, stream) IN (
					SELECT * FROM unnest($1::text[], $2::text[])
				)
			`, table), pq.Array(keys), pq.Array(streams))
			if err != nil {
				return fmt.Errorf("remove relation batch: %w", err)
			}
		}
		return nil
	})
}

func (r *Relations) GetByKey(ctx context.Context, key string) ([]eventstore.Pair, error) {
	table := r.db.schema.table("relations")
	var rows []struct {
		Key    string `db:"key"`
		Stream string `db:"stream"`
	}
	err := r.db.run(ctx, func(ctx context.Context) error {
		return r.db.conn.SelectContext(ctx, &rows, fmt.Sprintf(`SELECT key, stream FROM %s WHERE key = $1`, table), key)
	})
	if err != nil {
		return nil, fmt.Errorf("get relations by key: %w", err)
	}
	out := make([]eventstore.Pair, len(rows))
	for i, row := range rows {
		out[i] = eventstore.Pair{Key: row.Key, Stream: row.Stream}
	}
	return out, nil
}

func (r *Relations) GetByKeys(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	table := r.db.schema.table("relations")
	var streams []string
	err := r.db.run(ctx, func(ctx context.Context) error {
		return r.db.conn.SelectContext(ctx, &streams, fmt.Sprintf(
			`SELECT DISTINCT stream FROM %s WHERE key = ANY($1)`, table), pq.Array(keys))
	})
	if err != nil {
		return nil, fmt.Errorf("get relations by keys: %w", err)
	}
	return streams, nil
}

func (r *Relations) RemoveByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	table := r.db.schema.table("relations")
	return r.db.run(ctx, func(ctx context.Context) error {
		_, err := r.db.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, table), pq.Array(keys))
		if err != nil {
			return fmt.Errorf("remove relations by keys: %w", err)
		}
		return nil
	})
}

func (r *Relations) RemoveByStreams(ctx context.Context, streams []string) error {
	if len(streams) == 0 {
		return nil
	}
	table := r.db.schema.table("relations")
	return r.db.run(ctx, func(ctx context.Context) error {
		_, err := r.db.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE stream = ANY($1)`, table), pq.Array(streams))
		if err != nil {
			return fmt.Errorf("remove relations by streams: %w", err)
		}
		return nil
	})
}

var _ eventstore.RelationsProvider = (*Relations)(nil)
