package eventstore

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer mirrors go-eventstore/eventstore.go's otel.Tracer("libranexus/eventstore")
// call site: one package-scoped tracer, spans opened per facade/provider
// operation with attributes for stream, type, and record counts.
var tracer = otel.Tracer("github.com/libranexus/eventcore/pkg/eventstore")

// Tracer exposes the package tracer so adapted providers (sqlstore,
// memstore) and the projector can open spans under the same instrumentation
// scope.
func Tracer() trace.Tracer { return tracer }
