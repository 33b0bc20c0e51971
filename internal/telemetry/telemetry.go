// Package telemetry exports triadd's OpenTelemetry metrics over OTLP.
//
// Only the metrics pipeline is wired; triadd emits no spans. Telemetry
// failures do not crash the daemon, they degrade to no-op.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP collector endpoint, host:port.
	Endpoint string `koanf:"endpoint"`

	// Protocol selects the exporter transport: "grpc" (default) or
	// "http/protobuf".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS; the default for local collectors.
	Insecure bool `koanf:"insecure"`

	// ExportInterval is the periodic reader interval.
	ExportInterval time.Duration `koanf:"export_interval"`

	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// NewDefaultConfig returns defaults suitable for a local collector.
// Disabled by default; most triadd users run without a collector.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       "grpc",
		Insecure:       true,
		ExportInterval: 15 * time.Second,
		ServiceName:    "triadd",
		ServiceVersion: "1.0.0",
	}
}

// Telemetry owns the metrics pipeline and its shutdown.
type Telemetry struct {
	config        *Config
	meterProvider *sdkmetric.MeterProvider
}

// New initializes the OTLP metrics pipeline and installs the global
// MeterProvider. Returns a no-op instance when telemetry is disabled.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry resource: %w", err)
	}

	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		),
	)
	otel.SetMeterProvider(t.meterProvider)

	return t, nil
}

func newMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.Protocol {
	case "http/protobuf":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default: // "grpc"
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
}

// IsEnabled reports whether the pipeline is active.
func (t *Telemetry) IsEnabled() bool {
	return t != nil && t.meterProvider != nil
}

// Shutdown flushes and stops the metrics pipeline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.meterProvider == nil {
		return nil
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("metric provider shutdown: %w", err)
	}
	return nil
}
