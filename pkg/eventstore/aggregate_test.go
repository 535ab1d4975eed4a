package eventstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

type counter struct {
	eventstore.AggregateBase
	total int
}

func newCounter(stream string) *counter {
	c := &counter{}
	c.AggregateBase = eventstore.InitAggregateBase(stream, c.apply, nil, nil)
	return c
}

func (c *counter) apply(r eventstore.Record) {
	switch r.Type {
	case "counter.incremented":
		c.total++
	case "counter.reset":
		c.total = 0
	}
}

func (c *counter) Increment() eventstore.Record {
	return c.Push(eventstore.PartialRecord{Type: "counter.incremented"})
}

func TestAggregateBase_PushAppliesLocallyAndBuffersPending(t *testing.T) {
	c := newCounter("counter-1")

	c.Increment()
	c.Increment()

	assert.Equal(t, 2, c.total, "With must run synchronously inside Push")
	assert.Equal(t, "counter-1", c.Stream())
	require.Len(t, c.Pending(), 2)
	for _, r := range c.Pending() {
		assert.Equal(t, "counter-1", r.Stream, "Push fills in the aggregate's own stream when partial omits it")
	}
}

func TestAggregateBase_FlushClearsPendingWithoutAffectingState(t *testing.T) {
	c := newCounter("counter-2")
	c.Increment()
	c.Flush()

	assert.Empty(t, c.Pending())
	assert.Equal(t, 1, c.total, "Flush only clears the buffer, not derived state")
}

func TestAggregateBase_WithReplaysWithoutBuffering(t *testing.T) {
	c := newCounter("counter-3")
	c.With(eventstore.Record{Type: "counter.incremented"})
	c.With(eventstore.Record{Type: "counter.incremented"})

	assert.Equal(t, 2, c.total)
	assert.Empty(t, c.Pending(), "With (replay) must not enqueue into the pending buffer")
}
