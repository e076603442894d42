package reactobj

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports store activity to m. Several stores may share one
// Metrics value.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for flush and prune spans. Defaults to the
// tracer of the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithEquals sets the function deciding whether a value changed, used both
// for the no-op check on writes and for comparing observed values during
// invalidation. Defaults to valuetree.Same (reference identity for
// containers).
func WithEquals(fn func(a, b any) bool) Option {
	return func(s *Store) {
		if fn != nil {
			s.equal = fn
		}
	}
}
