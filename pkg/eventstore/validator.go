package eventstore

import "encoding/json"

// Schema validates a raw JSON payload, returning a flattened per-field error
// map on failure. Concrete schemas are produced by the code-generation tool
// named in spec.md §6 (out of scope here); Validator only holds the runtime
// contract they must satisfy, per the design note in spec.md §9: schemas
// stay a runtime, string-keyed contract even though the generator emits
// static record types per event.
type Schema interface {
	Validate(data json.RawMessage) FieldErrors
}

// SchemaFunc adapts a plain function to Schema.
type SchemaFunc func(json.RawMessage) FieldErrors

func (f SchemaFunc) Validate(data json.RawMessage) FieldErrors { return f(data) }

// Validator is the registry described in spec.md §4.5: two independent
// type -> schema maps, one for data and one for meta. A type registered in
// neither map is simply not validated for that field.
type Validator struct {
	dataSchemas map[string]Schema
	metaSchemas map[string]Schema
	knownTypes  map[string]struct{}
}

// NewValidator returns an empty registry.
func NewValidator() *Validator {
	return &Validator{
		dataSchemas: make(map[string]Schema),
		metaSchemas: make(map[string]Schema),
		knownTypes:  make(map[string]struct{}),
	}
}

// RegisterType marks a type as a member of the registered event-type set,
// independent of whether it has a data or meta schema. hasEventType reads
// from this set.
func (v *Validator) RegisterType(eventType string) {
	v.knownTypes[eventType] = struct{}{}
}

// RegisterDataSchema registers (and implicitly RegisterType's) the data
// schema for a type.
func (v *Validator) RegisterDataSchema(eventType string, schema Schema) {
	v.RegisterType(eventType)
	v.dataSchemas[eventType] = schema
}

// RegisterMetaSchema registers (and implicitly RegisterType's) the meta
// schema for a type.
func (v *Validator) RegisterMetaSchema(eventType string, schema Schema) {
	v.RegisterType(eventType)
	v.metaSchemas[eventType] = schema
}

// HasEventType reports whether t is a member of the registered event-type
// set.
func (v *Validator) HasEventType(eventType string) bool {
	_, ok := v.knownTypes[eventType]
	return ok
}

// Validate checks both data and meta schemas (when present) and collects
// all failures before returning, per spec.md §4.5.
func (v *Validator) Validate(r Record) *ValidationError {
	var dataErrs, metaErrs FieldErrors

	if schema, ok := v.dataSchemas[r.Type]; ok {
		if errs := schema.Validate(r.Data); len(errs) > 0 {
			dataErrs = errs
		}
	}
	if schema, ok := v.metaSchemas[r.Type]; ok {
		if errs := schema.Validate(r.Meta); len(errs) > 0 {
			metaErrs = errs
		}
	}

	if len(dataErrs) == 0 && len(metaErrs) == 0 {
		return nil
	}
	return &ValidationError{Type: r.Type, DataErrors: dataErrs, MetaErrors: metaErrs}
}
