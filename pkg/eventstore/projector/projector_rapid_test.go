package projector_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/projector"
)

// TestProjector_PerStreamOrderHoldsUnderInterleavedPushes is a property test
// (P4): however many streams and records are interleaved, each stream's own
// records are always dispatched in the order they were pushed.
func TestProjector_PerStreamOrderHoldsUnderInterleavedPushes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := projector.New()

		var mu sync.Mutex
		seenByStream := make(map[string][]int)
		p.Subscribe(projector.All, nil, func(_ context.Context, r eventstore.Record) error {
			idx := int(r.Data[0])
			mu.Lock()
			seenByStream[r.Stream] = append(seenByStream[r.Stream], idx)
			mu.Unlock()
			return nil
		}, nil)

		streamCount := rapid.IntRange(1, 4).Draw(t, "streamCount")
		pushCount := rapid.IntRange(1, 40).Draw(t, "pushCount")

		wantByStream := make(map[string][]int)
		var completions []*projector.Completion
		for i := 0; i < pushCount; i++ {
			idx := rapid.IntRange(0, streamCount-1).Draw(t, "streamIdx")
			stream := "stream-" + string(rune('a'+idx))
			wantByStream[stream] = append(wantByStream[stream], i)
			r := eventstore.Record{ID: stream + "-" + string(rune('0'+i%10)), Stream: stream, Type: "t", Data: []byte{byte(i)}}
			completions = append(completions, p.Push(context.Background(), r, eventstore.Status{}))
		}
		for _, c := range completions {
			require.NoError(t, c.Wait())
		}

		mu.Lock()
		defer mu.Unlock()
		for stream, want := range wantByStream {
			got := seenByStream[stream]
			if len(got) != len(want) {
				t.Fatalf("stream %s: got %d records, want %d", stream, len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("P4 violated on stream %s: position %d got %d want %d", stream, i, got[i], want[i])
				}
			}
		}
	})
}
