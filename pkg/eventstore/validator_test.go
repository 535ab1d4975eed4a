package eventstore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

func requireField(data json.RawMessage, field string) eventstore.FieldErrors {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return eventstore.FieldErrors{field: "invalid json"}
	}
	if _, ok := m[field]; !ok {
		return eventstore.FieldErrors{field: "required"}
	}
	return nil
}

func TestValidator_HasEventTypeTracksRegisteredTypesOnly(t *testing.T) {
	v := eventstore.NewValidator()
	assert.False(t, v.HasEventType("widget.created"))

	v.RegisterType("widget.created")
	assert.True(t, v.HasEventType("widget.created"))
}

func TestValidator_RegisterDataSchemaImpliesRegisterType(t *testing.T) {
	v := eventstore.NewValidator()
	v.RegisterDataSchema("widget.created", eventstore.SchemaFunc(func(data json.RawMessage) eventstore.FieldErrors {
		return requireField(data, "isbn")
	}))
	assert.True(t, v.HasEventType("widget.created"))
}

func TestValidator_ValidateReturnsNilWhenNoSchemaRegistered(t *testing.T) {
	v := eventstore.NewValidator()
	v.RegisterType("widget.created")

	err := v.Validate(eventstore.Record{Type: "widget.created", Data: json.RawMessage(`{}`)})
	assert.Nil(t, err, "an unschemaed but registered type validates trivially")
}

func TestValidator_ValidateCollectsBothDataAndMetaErrors(t *testing.T) {
	v := eventstore.NewValidator()
	v.RegisterDataSchema("widget.created", eventstore.SchemaFunc(func(data json.RawMessage) eventstore.FieldErrors {
		return requireField(data, "isbn")
	}))
	v.RegisterMetaSchema("widget.created", eventstore.SchemaFunc(func(data json.RawMessage) eventstore.FieldErrors {
		return requireField(data, "actor")
	}))

	err := v.Validate(eventstore.Record{
		Type: "widget.created",
		Data: json.RawMessage(`{}`),
		Meta: json.RawMessage(`{}`),
	})
	require.NotNil(t, err)
	assert.Contains(t, err.DataErrors, "isbn")
	assert.Contains(t, err.MetaErrors, "actor")
}

func TestValidator_ValidatePassesWhenFieldsPresent(t *testing.T) {
	v := eventstore.NewValidator()
	v.RegisterDataSchema("widget.created", eventstore.SchemaFunc(func(data json.RawMessage) eventstore.FieldErrors {
		return requireField(data, "isbn")
	}))

	err := v.Validate(eventstore.Record{Type: "widget.created", Data: json.RawMessage(`{"isbn":"123"}`)})
	assert.Nil(t, err)
}
