package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config selects the metric exporter. An empty CollectorURL disables export;
// instruments still work against the global no-op provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorURL   string
}

// Provider owns the meter provider and the library instrument set.
type Provider struct {
	MeterProvider  *sdkmetric.MeterProvider
	LibraryMetrics *LibraryMetrics
}

// NewProvider wires the OTLP/HTTP metric pipeline when a collector is
// configured and registers the library instruments.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}

	if cfg.CollectorURL != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(cfg.ServiceName),
				semconv.ServiceVersionKey.String(cfg.ServiceVersion),
				semconv.DeploymentEnvironmentKey.String(cfg.Environment),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("create resource: %w", err)
		}
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.CollectorURL),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("metric exporter: %w", err)
		}
		p.MeterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(30*time.Second),
			)),
		)
		otel.SetMeterProvider(p.MeterProvider)
	}

	meter := otel.Meter("gamerack.library")
	m, err := NewLibraryMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("library metrics: %w", err)
	}
	p.LibraryMetrics = m
	return p, nil
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
