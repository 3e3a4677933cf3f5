package observability

import (
	"context"
	"time"

	"gatekeeper/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStore wraps a ratelimit.Store implementation with OpenTelemetry
// tracing and metrics instrumentation.
type InstrumentedStore struct {
	inner    ratelimit.Store
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStore creates a store wrapper that records trace spans,
// operation latency histograms, and error counters for every store method call.
func NewInstrumentedStore(inner ratelimit.Store) (*InstrumentedStore, error) {
	tracer := otel.Tracer("gatekeeper/store")
	meter := otel.Meter("gatekeeper/store")

	duration, err := meter.Float64Histogram(
		"ratelimit.store.operation.duration",
		metric.WithDescription("Duration of rate limit store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"ratelimit.store.operation.errors",
		metric.WithDescription("Number of rate limit store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStore) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("store.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStore) PruneAndCount(ctx context.Context, key string, floor time.Time) (int64, error) {
	ctx, span := s.startSpan(ctx, "PruneAndCount", attribute.String("ratelimit.key", key))
	start := time.Now()
	count, err := s.inner.PruneAndCount(ctx, key, floor)
	s.record(ctx, span, "PruneAndCount", start, err)
	return count, err
}

func (s *InstrumentedStore) CountSince(ctx context.Context, key string, floor time.Time) (int64, error) {
	ctx, span := s.startSpan(ctx, "CountSince", attribute.String("ratelimit.key", key))
	start := time.Now()
	count, err := s.inner.CountSince(ctx, key, floor)
	s.record(ctx, span, "CountSince", start, err)
	return count, err
}

func (s *InstrumentedStore) Record(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	ctx, span := s.startSpan(ctx, "Record", attribute.String("ratelimit.key", key))
	start := time.Now()
	err := s.inner.Record(ctx, key, at, ttl)
	s.record(ctx, span, "Record", start, err)
	return err
}

func (s *InstrumentedStore) Clear(ctx context.Context, keys ...string) error {
	ctx, span := s.startSpan(ctx, "Clear", attribute.Int("ratelimit.key_count", len(keys)))
	start := time.Now()
	err := s.inner.Clear(ctx, keys...)
	s.record(ctx, span, "Clear", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
