// Package sqlstore is the concrete relational-database implementation of
// the three storage-provider contracts, backed by PostgreSQL via
// github.com/lib/pq and github.com/jmoiron/sqlx, grounded on
// go-eventstore/eventstore.go's transactional insert/query style and
// instrumented with the same OpenTelemetry spans.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/resilience"
)

const defaultBatchSize = 1000

// db is the shared handle all three providers wrap: a schema namespace, the
// sqlx connection, and an optional circuit breaker guarding every call.
type db struct {
	conn    *sqlx.DB
	schema  Schema
	breaker *resilience.Breaker
}

// Option configures an Events/Relations/Snapshots provider.
type Option func(*db)

// WithBreaker wraps every call to the underlying database through b, so a
// struggling database fails fast instead of stalling callers one
// connection-timeout at a time.
func WithBreaker(b *resilience.Breaker) Option {
	return func(d *db) { d.breaker = b }
}

func newDB(conn *sqlx.DB, schema Schema, opts []Option) *db {
	d := &db{conn: conn, schema: schema}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *db) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.breaker == nil {
		return fn(ctx)
	}
	return d.breaker.Do(ctx, fn)
}

// withTx runs fn inside a transaction, rolling back unless fn returns nil.
func (d *db) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return d.run(ctx, func(ctx context.Context) error {
		tx, err := d.conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	return append(out, items)
}
