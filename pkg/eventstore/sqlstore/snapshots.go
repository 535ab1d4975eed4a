package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Snapshots is the Postgres-backed eventstore.SnapshotsProvider (§4.4, §6).
// Append-only; readers take the row with the greatest cursor, which is not
// necessarily the most recently inserted one. Among rows with equal cursors
// the choice is not defined.
type Snapshots struct{ db *db }

func NewSnapshots(conn *sqlx.DB, schema Schema, opts ...Option) *Snapshots {
	return &Snapshots{db: newDB(conn, schema, opts)}
}

func (s *Snapshots) Insert(ctx context.Context, row eventstore.SnapshotRow) error {
	table := s.db.schema.table("snapshots")
	return s.db.run(ctx, func(ctx context.Context) error {
		_, err := s.db.conn.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, name, stream, cursor, state) VALUES ($1, $2, $3, $4, $5)
		`, table), uuid.New(), row.Name, row.Stream, row.Cursor, row.State)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

func (s *Snapshots) GetByStream(ctx context.Context, name, stream string) (*eventstore.SnapshotRow, error) {
	table := s.db.schema.table("snapshots")
	var row eventstore.SnapshotRow
	var found bool
	err := s.db.run(ctx, func(ctx context.Context) error {
		err := s.db.conn.QueryRowxContext(ctx, fmt.Sprintf(`
			SELECT name, stream, cursor, state FROM %s
			WHERE name = $1 AND stream = $2
			ORDER BY cursor DESC
			LIMIT 1
		`, table), name, stream).StructScan(&row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &row, nil
}

func (s *Snapshots) Remove(ctx context.Context, name, stream string) error {
	table := s.db.schema.table("snapshots")
	return s.db.run(ctx, func(ctx context.Context) error {
		_, err := s.db.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = $1 AND stream = $2`, table), name, stream)
		if err != nil {
			return fmt.Errorf("remove snapshot: %w", err)
		}
		return nil
	})
}

var _ eventstore.SnapshotsProvider = (*Snapshots)(nil)
