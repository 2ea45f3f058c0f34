package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
)

type Metrics struct {
	Runtime   *RuntimeMetrics
	Database  *DatabaseMetrics
	Messaging *MessagingMetrics
	Health    *HealthMetrics
	Grpc      *GrpcMetrics
	logger    *slog.Logger
}

func New(ctx context.Context, serviceName string, logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	runtime, err := NewRuntimeMetrics(ctx, meter)
	if err != nil {
		return nil, err
	}

	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	messaging, err := NewMessagingMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	grpcMetrics, err := NewGrpcMetrics(meter)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized successfully")

	return &Metrics{
		Runtime:   runtime,
		Database:  database,
		Messaging: messaging,
		Health:    health,
		Grpc:      grpcMetrics,
		logger:    logger,
	}, nil
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{
		Database:  &DatabaseMetrics{},
		Messaging: &MessagingMetrics{},
		Health:    &HealthMetrics{dependencies: map[string]*DependencyStatus{}},
		Runtime:   &RuntimeMetrics{},
		Grpc:      &GrpcMetrics{},
	}
}

// latencyBuckets covers 1ms..10s, enough resolution for p95/p99 of network round trips.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}
