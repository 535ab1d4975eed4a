package eventstore_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

func TestUnknownEventTypeError_IsMatchesSentinel(t *testing.T) {
	err := &eventstore.UnknownEventTypeError{Type: "widget.ghost"}
	assert.ErrorIs(t, err, eventstore.ErrUnknownEventType)
	assert.Contains(t, err.Error(), "widget.ghost")
}

func TestValidationError_IsMatchesSentinel(t *testing.T) {
	err := &eventstore.ValidationError{
		Type:       "widget.created",
		DataErrors: eventstore.FieldErrors{"isbn": "required"},
	}
	assert.ErrorIs(t, err, eventstore.ErrValidationFailed)
	assert.Contains(t, err.Error(), "widget.created")
}

func TestInsertionError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &eventstore.InsertionError{Cause: cause}

	assert.ErrorIs(t, err, eventstore.ErrInsertionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestHookError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("smtp timeout")
	err := &eventstore.HookError{Cause: cause}

	assert.ErrorIs(t, err, cause)
}
