package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics groups the infrastructure instruments shared by every repository,
// producer and readiness probe. Domain counters live in internal/metrics.
type Metrics struct {
	Database  *DatabaseMetrics
	Messaging *MessagingMetrics
	Health    *HealthMetrics
}

func New(ctx context.Context, meter metric.Meter, logger *slog.Logger) (*Metrics, error) {
	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("database metrics: %w", err)
	}

	messaging, err := NewMessagingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("messaging metrics: %w", err)
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("health metrics: %w", err)
	}

	logger.DebugContext(ctx, "infrastructure metrics initialized")

	return &Metrics{
		Database:  database,
		Messaging: messaging,
		Health:    health,
	}, nil
}

// NewMock returns Metrics whose recorders accept calls and export nothing.
// Health state is still tracked so probes can be asserted on.
func NewMock() *Metrics {
	return &Metrics{
		Database:  &DatabaseMetrics{},
		Messaging: &MessagingMetrics{},
		Health:    &HealthMetrics{dependencies: map[string]*dependencyState{}, now: time.Now},
	}
}
