package eventstore

import (
	"fmt"
	"sync"
	"time"
)

// Clock is the timestamp source contract (§6): it yields strings comparable
// with lexicographic < / > and strictly increasing within a process, even
// when two calls land in the same wall-clock instant. The hybrid-logical-
// clock implementation proper is an external collaborator (spec.md §1); this
// package ships only the simple monotonic default below.
type Clock interface {
	Now() string
}

// monotonicClock zero-pads a nanosecond epoch so lexicographic and numeric
// order agree, and breaks wall-clock ties by moving the epoch one
// nanosecond past the last value it returned.
type monotonicClock struct {
	mu   sync.Mutex
	last int64
	seq  int64
}

// NewClock returns the default Clock: strictly increasing, total-order,
// string-comparable timestamps local to this process.
func NewClock() Clock {
	return &monotonicClock{}
}

func (c *monotonicClock) Now() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	c.seq++

	// 19-digit nanosecond epoch keeps ordering correct until the year 2262;
	// the epoch alone is already strictly increasing for this clock, and the
	// suffix is this clock's call count.
	return fmt.Sprintf("%019d.%010d", now, c.seq)
}
