package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "easyproject-mcp/server/internal/observability"

// Tool call outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusPanic   = "panic"
)

// ToolMetrics counts tool calls and their duration.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewToolMetrics creates the instruments on provider, or on the global
// provider when nil.
func NewToolMetrics(provider metric.MeterProvider) *ToolMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	calls, err := meter.Int64Counter(
		"mcp.tool.calls",
		metric.WithDescription("Tool calls by tool and outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram(
		"mcp.tool.duration",
		metric.WithDescription("Tool call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &ToolMetrics{calls: calls, duration: duration}
}

// Record adds one call. A nil receiver records nothing.
func (m *ToolMetrics) Record(ctx context.Context, tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	if m.calls != nil {
		m.calls.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}
