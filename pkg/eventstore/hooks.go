package eventstore

import (
	"context"
	"fmt"
)

// Hooks is the extension point named in spec.md §6. OnEventsInserted is
// called after a successful (many-)insert and is where projection dispatch
// is typically wired in; OnError is the fallback for errors raised inside
// OnEventsInserted.
type Hooks struct {
	OnEventsInserted func(ctx context.Context, records []Record, settings InsertSettings)
	OnError          func(err error)
}

func (h Hooks) invoke(ctx context.Context, records []Record, settings InsertSettings) {
	if h.OnEventsInserted == nil || !settings.emits() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			h.reportError(&HookError{Cause: asError(rec)})
		}
	}()
	h.OnEventsInserted(ctx, records, settings)
}

func (h Hooks) reportError(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func asError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &panicValue{v: rec}
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return fmt.Sprintf("%v", p.v) }
