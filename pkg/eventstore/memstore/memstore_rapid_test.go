package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/memstore"
)

// TestEvents_SequentialInsertsStayMonotonicAndOrdered is a property test
// (P1/P2): for any sequence of individually-inserted records sharing a
// stream, the store's own clock assigns strictly increasing cursors, and a
// full-stream read comes back in that same order.
func TestEvents_SequentialInsertsStayMonotonicAndOrdered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := memstore.NewEvents()
		ctx := context.Background()
		clock := eventstore.NewClock()

		n := rapid.IntRange(1, 30).Draw(t, "n")
		types := []string{"a", "b", "c"}

		var ids []string
		for i := 0; i < n; i++ {
			typ := types[rapid.IntRange(0, len(types)-1).Draw(t, "typIdx")]
			id := rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, "id")
			cursor := clock.Now()
			r := eventstore.Record{ID: id, Stream: "prop-stream", Type: typ, Created: cursor, Recorded: cursor}
			require.NoError(t, events.Insert(ctx, r))
			ids = append(ids, id)
		}

		got, err := events.GetByStream(ctx, "prop-stream", eventstore.ReadOptions{})
		require.NoError(t, err)
		require.Len(t, got, n)

		for i := 1; i < len(got); i++ {
			if got[i-1].Created >= got[i].Created {
				t.Fatalf("P1/P2 violated: cursor %d (%s) not strictly before cursor %d (%s)",
					i-1, got[i-1].Created, i, got[i].Created)
			}
		}

		seen := make(map[string]bool, len(ids))
		for _, r := range got {
			seen[r.ID] = true
		}
		for _, id := range ids {
			if !seen[id] {
				t.Fatalf("record %s inserted but missing from stream read", id)
			}
		}
	})
}

// TestEvents_CheckOutdatedAgreesWithMaxCursorPerType is a property test (P9):
// a record is outdated exactly when a strictly newer record of the same
// (stream, type) pair exists.
func TestEvents_CheckOutdatedAgreesWithMaxCursorPerType(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := memstore.NewEvents()
		ctx := context.Background()
		clock := eventstore.NewClock()

		n := rapid.IntRange(1, 20).Draw(t, "n")
		types := []string{"x", "y"}

		var records []eventstore.Record
		maxCursor := make(map[string]string)
		for i := 0; i < n; i++ {
			typ := types[rapid.IntRange(0, len(types)-1).Draw(t, "typIdx")]
			cursor := clock.Now()
			r := eventstore.Record{ID: rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, "id"), Stream: "outdated-stream", Type: typ, Created: cursor, Recorded: cursor}
			require.NoError(t, events.Insert(ctx, r))
			records = append(records, r)
			if cursor > maxCursor[typ] {
				maxCursor[typ] = cursor
			}
		}

		for _, r := range records {
			outdated, err := events.CheckOutdated(ctx, r)
			require.NoError(t, err)
			want := r.Created < maxCursor[r.Type]
			if outdated != want {
				t.Fatalf("P9 violated: record %s type %s cursor %s: got outdated=%v want=%v (max=%s)",
					r.ID, r.Type, r.Created, outdated, want, maxCursor[r.Type])
			}
		}
	})
}
