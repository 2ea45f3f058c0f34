package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"membership-service/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultEndpoint = "otel-collector.infra.svc.cluster.local:4317"

type Options struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP gRPC collector address. Empty uses the in-cluster collector.
	Endpoint string
	// Enabled switches the OTLP exporter on. When off, collectors still exist but
	// record into the global no-op provider.
	Enabled        bool
	ExportInterval time.Duration
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*metric.MeterProvider, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	interval := opts.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	logger.Info("initializing OTel metrics", "endpoint", endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(interval))),
	)

	otel.SetMeterProvider(meterProvider)
	logger.Info("OTel metrics initialized successfully")

	return meterProvider, nil
}

type Telemetry struct {
	MeterProvider *metric.MeterProvider
	Metrics       *metrics.Metrics
}

func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{}

	if opts.Enabled {
		meterProvider, err := InitMeterProvider(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		t.MeterProvider = meterProvider
	} else {
		logger.Info("OTel export disabled, metrics recorded into no-op provider")
	}

	m, err := metrics.New(ctx, opts.ServiceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	meter := otel.Meter(opts.ServiceName)
	if err := m.Health.RegisterServiceInfo(ctx, meter, opts.ServiceName, opts.ServiceVersion, opts.Environment); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	t.Metrics = m
	return t, nil
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
