// Package telemetry wires an OpenTelemetry meter provider to a Prometheus
// scrape handler.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const MeterName = "github.com/sandevgo/parley"

type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	handler       http.Handler
}

// New builds a meter provider backed by its own Prometheus registry and installs
// it as the global otel provider.
func New() (*Provider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	return &Provider{
		meterProvider: mp,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

func (p *Provider) Handler() http.Handler {
	return p.handler
}

func (p *Provider) Meter() metric.Meter {
	return p.meterProvider.Meter(MeterName)
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meterProvider.Shutdown(ctx)
}

// Meter returns the global meter; it is a no-op until New has run.
func Meter() metric.Meter {
	return otel.Meter(MeterName)
}
