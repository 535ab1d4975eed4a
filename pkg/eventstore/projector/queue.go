package projector

import (
	"context"
	"sync"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

type dispatchItem struct {
	ctx        context.Context
	record     eventstore.Record
	status     Status
	completion *Completion
}

// streamQueue is the per-stream FIFO queue (§4.7, §9): created lazily on the
// first record for a stream, torn down once it drains. Handlers for the
// same stream never run concurrently; the queue processes one record at a
// time, evaluating every subscribed handler before moving on.
//
// State machine: idle -> running -> (idle | draining) -> removed. Once the
// backlog drains to empty the queue marks itself closed and its worker
// goroutine exits, so no worker is retained for an inactive stream; a
// subsequent push for the same stream id finds nothing in the projector's
// map and lazily starts a fresh queue.
type streamQueue struct {
	items    chan dispatchItem
	dispatch func(ctx context.Context, item dispatchItem)
	onDrain  func()

	mu      sync.Mutex
	pending int
	closed  bool
}

func newStreamQueue(capacity int, dispatch func(ctx context.Context, item dispatchItem)) *streamQueue {
	q := &streamQueue{
		items:    make(chan dispatchItem, capacity),
		dispatch: dispatch,
	}
	go q.run()
	return q
}

// enqueue returns false when the queue has already closed (drained
// concurrently); the caller should fetch or create a fresh queue and retry.
func (q *streamQueue) enqueue(ctx context.Context, item dispatchItem) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending++
	q.mu.Unlock()

	select {
	case q.items <- item:
		return true
	case <-ctx.Done():
		q.mu.Lock()
		q.pending--
		q.mu.Unlock()
		item.completion.fail(ctx.Err())
		return true
	}
}

func (q *streamQueue) run() {
	for {
		item, ok := <-q.items
		if !ok {
			return
		}
		q.dispatch(item.ctx, item)

		q.mu.Lock()
		q.pending--
		empty := q.pending == 0
		if empty {
			q.closed = true
		}
		q.mu.Unlock()

		if empty {
			if q.onDrain != nil {
				q.onDrain()
			}
			return
		}
	}
}
