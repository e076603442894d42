package reactobj

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for stores.
const defaultTracerName = "github.com/vango-dev/reactobj"

func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}

// startFlushSpan starts the span covering one invalidation pass.
// Flush callbacks carry no context, so spans are roots unless the tracer
// provider says otherwise.
func (s *Store) startFlushSpan(dirty int) trace.Span {
	_, span := s.tracer.Start(context.Background(), "reactobj.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("reactobj.dirty_paths", dirty)),
	)
	return span
}

func endFlushSpan(span trace.Span, r passResult, all bool) {
	span.SetAttributes(
		attribute.Bool("reactobj.all", all),
		attribute.Int("reactobj.checked", r.checked),
		attribute.Int("reactobj.invalidated", r.invalidated),
		attribute.Int("reactobj.suppressed", r.suppressed),
	)
	span.End()
}

func (s *Store) startPruneSpan(paths int) trace.Span {
	_, span := s.tracer.Start(context.Background(), "reactobj.prune",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("reactobj.removed_paths", paths)),
	)
	return span
}
