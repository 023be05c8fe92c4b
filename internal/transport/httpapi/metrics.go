package httpapi

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	speakRequests    metric.Int64Counter
	generateRequests metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	m, err := buildMetrics(meter)
	if err != nil {
		m, _ = buildMetrics(noop.Meter{})
	}
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err1, err2 error

	m.speakRequests, err1 = meter.Int64Counter("parley.http.speak.requests",
		metric.WithDescription("Speech synthesis requests by outcome"))
	m.generateRequests, err2 = meter.Int64Counter("parley.http.generate.requests",
		metric.WithDescription("One-shot generation requests by outcome"))

	return m, errors.Join(err1, err2)
}

func (m *metrics) speak(ctx context.Context, outcome string) {
	m.speakRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) generate(ctx context.Context, outcome string) {
	m.generateRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
