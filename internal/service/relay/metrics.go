package relay

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	sessions metric.Int64UpDownCounter
	cycles   metric.Int64Counter
	degraded metric.Int64Counter
	rejected metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) *metrics {
	m, err := buildMetrics(meter)
	if err != nil {
		m, _ = buildMetrics(noop.Meter{})
	}
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	var errs []error
	m := &metrics{}
	var err error

	m.sessions, err = meter.Int64UpDownCounter("parley.relay.sessions",
		metric.WithDescription("Open relay sessions"))
	errs = append(errs, err)

	m.cycles, err = meter.Int64Counter("parley.relay.cycles",
		metric.WithDescription("Response cycles by outcome"))
	errs = append(errs, err)

	m.degraded, err = meter.Int64Counter("parley.relay.degraded",
		metric.WithDescription("Enrichment steps that fell back to an empty value"))
	errs = append(errs, err)

	m.rejected, err = meter.Int64Counter("parley.relay.rejected",
		metric.WithDescription("Inbound frames rejected with an error frame"))
	errs = append(errs, err)

	m.duration, err = meter.Float64Histogram("parley.relay.cycle.duration",
		metric.WithDescription("Response cycle duration"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	return m, errors.Join(errs...)
}

func (m *metrics) sessionOpened(ctx context.Context) { m.sessions.Add(ctx, 1) }
func (m *metrics) sessionClosed(ctx context.Context) { m.sessions.Add(ctx, -1) }

func (m *metrics) cycle(ctx context.Context, outcome string, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.cycles.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}

func (m *metrics) degrade(ctx context.Context, step string) {
	m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}

func (m *metrics) reject(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func noopMeter() metric.Meter {
	return noop.Meter{}
}
