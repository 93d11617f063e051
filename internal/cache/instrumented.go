package cache

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "easyproject-mcp/server/internal/cache"

// Instrumented wraps a Cache with metrics instrumentation.
type Instrumented struct {
	wrapped    Cache
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewInstrumented creates an instrumented cache wrapper. A nil provider uses
// the global meter provider.
func NewInstrumented(c Cache, provider metric.MeterProvider) *Instrumented {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	operations, err := meter.Int64Counter(
		"cache.operations",
		metric.WithDescription("Total cache operations"),
	)
	if err != nil {
		otel.Handle(err)
	}

	duration, err := meter.Float64Histogram(
		"cache.operation.duration",
		metric.WithDescription("Cache operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Instrumented{
		wrapped:    c,
		operations: operations,
		duration:   duration,
	}
}

// Get retrieves a body from the cache.
func (i *Instrumented) Get(ctx context.Context, key string) (jx.Raw, bool, error) {
	start := time.Now()

	value, found, err := i.wrapped.Get(ctx, key)

	status := "miss"
	if err != nil {
		status = "error"
	} else if found {
		status = "hit"
	}
	i.record(ctx, "get", status, time.Since(start))

	return value, found, err
}

// Set stores a body in the cache.
func (i *Instrumented) Set(ctx context.Context, key string, tier Tier, value jx.Raw) error {
	start := time.Now()

	err := i.wrapped.Set(ctx, key, tier, value)

	i.record(ctx, "set", statusOf(err), time.Since(start))
	return err
}

// InvalidateAll removes every entry.
func (i *Instrumented) InvalidateAll(ctx context.Context) error {
	start := time.Now()

	err := i.wrapped.InvalidateAll(ctx)

	i.record(ctx, "invalidate_all", statusOf(err), time.Since(start))
	return err
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (i *Instrumented) record(ctx context.Context, operation, status string, d time.Duration) {
	if i.operations != nil {
		i.operations.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("cache.operation", operation),
				attribute.String("cache.status", status),
			),
		)
	}
	if i.duration != nil {
		i.duration.Record(ctx, d.Seconds(),
			metric.WithAttributes(attribute.String("cache.operation", operation)),
		)
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("cache."+operation+".status", status),
		attribute.Float64("cache."+operation+".duration", d.Seconds()),
	)
}
