package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/eventcore/pkg/eventstore/resilience"
)

func TestBreaker_PassesThroughSuccessAndFailure(t *testing.T) {
	b := resilience.New(resilience.Config{Name: "t1"})
	ctx := context.Background()

	require.NoError(t, b.Do(ctx, func(context.Context) error { return nil }))

	boom := errors.New("boom")
	err := b.Do(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestBreaker_OpensAfterFailureRatioExceeded(t *testing.T) {
	b := resilience.New(resilience.Config{Name: "t2", FailureRatio: 0.5, Timeout: time.Hour})
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 8; i++ {
		_ = b.Do(ctx, func(context.Context) error { return boom })
	}

	err := b.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, resilience.ErrOpen, "P6: an open breaker fails fast without invoking fn")
}

func TestBreaker_ContextCancellationPropagatesUnwrapped(t *testing.T) {
	b := resilience.New(resilience.Config{Name: "t3"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}
