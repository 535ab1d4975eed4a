package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/memstore"
)

func TestEvents_InsertManyRejectsDuplicateIDAtomically(t *testing.T) {
	events := memstore.NewEvents()
	ctx := context.Background()

	first := eventstore.Record{ID: "dup", Stream: "s1", Type: "t", Created: "c1", Recorded: "c1"}
	require.NoError(t, events.Insert(ctx, first))

	batch := []eventstore.Record{
		{ID: "fresh", Stream: "s1", Type: "t", Created: "c2", Recorded: "c2"},
		first,
	}
	err := events.InsertMany(ctx, batch, 0)
	require.Error(t, err)

	got, err := events.GetByStream(ctx, "s1", eventstore.ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1, "the duplicate-id batch must not partially commit")
}

func TestEvents_CheckOutdatedIsStrict(t *testing.T) {
	events := memstore.NewEvents()
	ctx := context.Background()

	older := eventstore.Record{ID: "1", Stream: "s1", Type: "t", Created: "0001", Recorded: "0001"}
	newer := eventstore.Record{ID: "2", Stream: "s1", Type: "t", Created: "0002", Recorded: "0002"}
	require.NoError(t, events.Insert(ctx, older))
	require.NoError(t, events.Insert(ctx, newer))

	outdated, err := events.CheckOutdated(ctx, older)
	require.NoError(t, err)
	assert.True(t, outdated)

	outdated, err = events.CheckOutdated(ctx, newer)
	require.NoError(t, err)
	assert.False(t, outdated)
}

func TestEvents_GetAppliesCursorTypeFilterAndLimit(t *testing.T) {
	events := memstore.NewEvents()
	ctx := context.Background()

	require.NoError(t, events.Insert(ctx, eventstore.Record{ID: "1", Stream: "s1", Type: "a", Created: "0001", Recorded: "0001"}))
	require.NoError(t, events.Insert(ctx, eventstore.Record{ID: "2", Stream: "s1", Type: "b", Created: "0002", Recorded: "0002"}))
	require.NoError(t, events.Insert(ctx, eventstore.Record{ID: "3", Stream: "s1", Type: "a", Created: "0003", Recorded: "0003"}))

	got, err := events.GetByStream(ctx, "s1", eventstore.ReadOptions{
		Cursor: "0001",
		Filter: eventstore.Filter{Types: []string{"a"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got, err = events.GetByStream(ctx, "s1", eventstore.ReadOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestRelations_InsertManyIsIdempotentAndQueryable(t *testing.T) {
	relations := memstore.NewRelations()
	ctx := context.Background()

	pairs := []eventstore.Pair{{Key: "tenant-1", Stream: "s1"}, {Key: "tenant-1", Stream: "s2"}}
	require.NoError(t, relations.InsertMany(ctx, pairs, 0))
	require.NoError(t, relations.InsertMany(ctx, pairs, 0)) // re-insert: no duplicates, no error

	streams, err := relations.GetByKeys(ctx, []string{"tenant-1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, streams)

	require.NoError(t, relations.RemoveByStreams(ctx, []string{"s1"}))
	streams, err = relations.GetByKeys(ctx, []string{"tenant-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, streams)
}

func TestRelations_ApplyPartitionsInsertsAndRemoves(t *testing.T) {
	relations := memstore.NewRelations()
	ctx := context.Background()

	require.NoError(t, relations.Insert(ctx, "k1", "s1"))
	ops := []eventstore.RelationOp{
		{Pair: eventstore.Pair{Key: "k1", Stream: "s2"}},
		{Pair: eventstore.Pair{Key: "k1", Stream: "s1"}, Remove: true},
	}
	require.NoError(t, relations.Apply(ctx, ops, 0))

	streams, err := relations.GetByKeys(ctx, []string{"k1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, streams)
}

func TestSnapshots_GetByStreamReturnsMostRecentlyInserted(t *testing.T) {
	snapshots := memstore.NewSnapshots()
	ctx := context.Background()

	require.NoError(t, snapshots.Insert(ctx, eventstore.SnapshotRow{Name: "n", Stream: "s", Cursor: "c1", State: []byte(`1`)}))
	require.NoError(t, snapshots.Insert(ctx, eventstore.SnapshotRow{Name: "n", Stream: "s", Cursor: "c2", State: []byte(`2`)}))

	row, err := snapshots.GetByStream(ctx, "n", "s")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "c2", row.Cursor)

	require.NoError(t, snapshots.Remove(ctx, "n", "s"))
	row, err = snapshots.GetByStream(ctx, "n", "s")
	require.NoError(t, err)
	assert.Nil(t, row)
}
