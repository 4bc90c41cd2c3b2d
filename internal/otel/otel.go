// Package otel publishes the daemon's metrics: OpenTelemetry instruments
// exported through a Prometheus registry that also carries Go runtime and
// process collectors.
package otel

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "github.com/charbel-alt28/aura-retail-ai"

// Exporter owns the meter provider installed by Setup.
type Exporter struct {
	// Handler serves the registry in Prometheus text or OpenMetrics format.
	Handler  http.Handler
	provider *sdkmetric.MeterProvider
}

// Setup installs a global meter provider backed by a fresh Prometheus
// registry. Call once per process.
func Setup(ctx context.Context, service, version string) (*Exporter, error) {
	if service == "" {
		service = "aura"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	otelglobal.SetMeterProvider(provider)
	return &Exporter{
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true, Registry: reg}),
		provider: provider,
	}, nil
}

// Shutdown flushes and stops the provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil || e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}

// Meter is the package meter from the global provider.
func Meter() metric.Meter {
	return otelglobal.Meter(meterName)
}

var (
	AttrOperation = attribute.Key("operation")
	AttrAgent     = attribute.Key("agent")
	AttrStatus    = attribute.Key("status")
	AttrAction    = attribute.Key("action")
	AttrOutcome   = attribute.Key("outcome")
)
