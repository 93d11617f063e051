package observability

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// NewMeterProvider returns an in-process meter provider whose totals are read
// back with LogSummary when the session ends.
func NewMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// CounterTotal is one data point of an integer counter.
type CounterTotal struct {
	Metric string
	Attrs  map[string]string
	Value  int64
}

// CounterTotals collects every int64 counter from reader, sorted by metric
// name and then by attributes.
func CounterTotals(ctx context.Context, reader sdkmetric.Reader) ([]CounterTotal, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, errors.Wrap(err, "collect metrics")
	}

	var out []CounterTotal
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out = append(out, CounterTotal{Metric: m.Name, Attrs: attrMap(dp.Attributes), Value: dp.Value})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return attrKey(out[i].Attrs) < attrKey(out[j].Attrs)
	})
	return out, nil
}

// LogSummary writes one log line per counter data point.
func LogSummary(ctx context.Context, reader sdkmetric.Reader) {
	log := zerolog.Ctx(ctx)
	totals, err := CounterTotals(ctx, reader)
	if err != nil {
		log.Warn().Err(err).Msg("metrics summary unavailable")
		return
	}
	for _, t := range totals {
		attrs := zerolog.Dict()
		for k, v := range t.Attrs {
			attrs = attrs.Str(k, v)
		}
		log.Info().Str("metric", t.Metric).Dict("attributes", attrs).Int64("value", t.Value).Msg("metric total")
	}
}

func attrMap(set attribute.Set) map[string]string {
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func attrKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var s string
	for _, k := range keys {
		s += k + "=" + attrs[k] + ";"
	}
	return s
}
