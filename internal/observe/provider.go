package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig identifies the service in exported telemetry.
type ProviderConfig struct {
	// ServiceName defaults to "visawire" when empty.
	ServiceName string

	// ServiceVersion is the build version string, typically set at link time.
	ServiceVersion string
}

// InitProvider wires the OTel metrics SDK to a Prometheus exporter and
// installs it as the global meter provider, so every meter in the process
// ends up scrapeable at /metrics.
//
// The returned shutdown function flushes and closes the exporter; defer it
// from main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "visawire"
	}

	attrs := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)
	res, err := resource.Merge(resource.Default(), attrs)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
