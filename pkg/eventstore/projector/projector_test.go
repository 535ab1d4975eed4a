package projector_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/projector"
)

func record(stream, typ string) eventstore.Record {
	return eventstore.Record{ID: stream + "-" + typ, Stream: stream, Type: typ}
}

func TestProjector_DispatchesInPerStreamOrder(t *testing.T) {
	p := projector.New()

	var mu sync.Mutex
	var seen []string
	p.Subscribe(projector.All, nil, func(_ context.Context, r eventstore.Record) error {
		mu.Lock()
		seen = append(seen, r.Type)
		mu.Unlock()
		return nil
	}, nil)

	const n = 50
	var completions []*projector.Completion
	for i := 0; i < n; i++ {
		completions = append(completions, p.Push(context.Background(), record("s1", itoaPad(i)), eventstore.Status{}))
	}
	for _, c := range completions {
		require.NoError(t, c.Wait())
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, itoaPad(i), seen[i], "events on the same stream must dispatch in push order")
	}
}

func itoaPad(i int) string {
	digits := "0123456789"
	if i < 10 {
		return "0" + string(digits[i])
	}
	return string(digits[i/10]) + string(digits[i%10])
}

func TestProjector_ModeFiltersHydratedAndOutdated(t *testing.T) {
	p := projector.New()

	var onceCalls, continuousCalls, allCalls int
	var mu sync.Mutex

	onceDone := make(chan struct{}, 10)
	p.Subscribe(projector.Once, nil, func(_ context.Context, _ eventstore.Record) error {
		mu.Lock()
		onceCalls++
		mu.Unlock()
		return nil
	}, &projector.OnceEffects{
		OnSuccess: func(_ eventstore.Record) { onceDone <- struct{}{} },
		OnError:   func(_ error, _ eventstore.Record) { onceDone <- struct{}{} },
	})
	p.Subscribe(projector.Continuous, nil, func(_ context.Context, _ eventstore.Record) error {
		mu.Lock()
		continuousCalls++
		mu.Unlock()
		return nil
	}, nil)
	p.Subscribe(projector.All, nil, func(_ context.Context, _ eventstore.Record) error {
		mu.Lock()
		allCalls++
		mu.Unlock()
		return nil
	}, nil)

	cases := []eventstore.Status{
		{Hydrated: false, Outdated: false},
		{Hydrated: true, Outdated: false},
		{Hydrated: false, Outdated: true},
	}
	for i, status := range cases {
		c := p.Push(context.Background(), record("s2", itoaPad(i)), status)
		require.NoError(t, c.Wait())
	}
	<-onceDone // only the fresh record reaches the Once subscription

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, onceCalls, "Once accepts only the fresh, non-outdated record")
	assert.Equal(t, 2, continuousCalls, "Continuous rejects only the outdated record")
	assert.Equal(t, 3, allCalls, "All accepts everything")
}

func TestProjector_PushManyInvokesBatchHandlerAfterAllDispatched(t *testing.T) {
	p := projector.New()

	var mu sync.Mutex
	var batchSeen []eventstore.Record
	p.SubscribeBatch("import", func(_ context.Context, records []eventstore.Record) error {
		mu.Lock()
		batchSeen = records
		mu.Unlock()
		return nil
	})

	records := []eventstore.Record{record("s3", "a"), record("s4", "b"), record("s3", "c")}
	statuses := make([]projector.Status, len(records))
	c := p.PushMany(context.Background(), "import", records, statuses)
	require.NoError(t, c.Wait())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, records, batchSeen)
}

func TestProjector_HandlerErrorSurfacesThroughCompletion(t *testing.T) {
	p := projector.New()
	boom := assert.AnError
	p.Subscribe(projector.All, nil, func(_ context.Context, _ eventstore.Record) error {
		return boom
	}, nil)

	c := p.Push(context.Background(), record("s5", "x"), eventstore.Status{})
	assert.ErrorIs(t, c.Wait(), boom)
}

func TestProjector_HandlerPanicBecomesError(t *testing.T) {
	p := projector.New()
	p.Subscribe(projector.All, nil, func(_ context.Context, _ eventstore.Record) error {
		panic("boom")
	}, nil)

	c := p.Push(context.Background(), record("s6", "x"), eventstore.Status{})
	err := c.Wait()
	require.Error(t, err)
	var hp *projector.HandlerPanic
	assert.ErrorAs(t, err, &hp)
}
