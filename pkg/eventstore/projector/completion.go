package projector

import (
	"fmt"
	"sync"
)

// Completion is the handle Push/PushMany return: callers that care about
// handler outcomes call Wait; callers that don't can discard it, since
// dispatch proceeds independently of whether anyone waits (§4.7, P4).
type Completion struct {
	once sync.Once
	ch   chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{ch: make(chan struct{})}
}

// fail marks the completion failed with err, unless it has already
// finished — the first error reported wins.
func (c *Completion) fail(err error) {
	if err == nil {
		return
	}
	c.once.Do(func() {
		c.err = err
		close(c.ch)
	})
}

// done marks the completion successful. A no-op if fail already ran.
func (c *Completion) done() {
	c.once.Do(func() { close(c.ch) })
}

// Wait blocks until the record has been fully dispatched, returning the
// first handler error encountered, if any.
func (c *Completion) Wait() error {
	<-c.ch
	return c.err
}

// HandlerPanic wraps a recovered panic from a projector Handler so it
// surfaces as an error rather than crashing the dispatch worker.
type HandlerPanic struct {
	Value any
}

func (p *HandlerPanic) Error() string {
	return fmt.Sprintf("projector: handler panicked: %v", p.Value)
}
