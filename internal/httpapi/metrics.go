package httpapi

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// requestMetrics records per-request counters/histograms through the otel
// SDK, nil-safe throughout so a server started without a meter still runs.
type requestMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newRequestMetrics(meter metric.Meter) *requestMetrics {
	if meter == nil {
		return &requestMetrics{}
	}
	requests, err := meter.Int64Counter("graphd.http.requests",
		metric.WithDescription("count of HTTP requests handled"))
	if err != nil {
		requests = nil
	}
	duration, err := meter.Float64Histogram("graphd.http.request.duration",
		metric.WithDescription("HTTP request latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		duration = nil
	}
	return &requestMetrics{requests: requests, duration: duration}
}

func (m *requestMetrics) record(ctx context.Context, pattern string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", pattern),
		attribute.String("status", strconv.Itoa(status)),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}
