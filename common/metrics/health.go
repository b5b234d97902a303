package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type dependencyState struct {
	up          bool
	failures    int64
	lastSuccess time.Time
}

// HealthMetrics remembers the latest readiness probe per dependency and
// exposes it through observable gauges.
type HealthMetrics struct {
	up            metric.Int64ObservableGauge
	failureStreak metric.Int64ObservableGauge
	sinceSuccess  metric.Float64ObservableGauge
	probeLatency  metric.Float64Histogram
	serviceInfo   metric.Int64ObservableGauge

	mu           sync.RWMutex
	dependencies map[string]*dependencyState
	now          func() time.Time
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	hm := &HealthMetrics{
		dependencies: make(map[string]*dependencyState),
		now:          time.Now,
	}

	var err error

	// 1 = last probe succeeded
	hm.up, err = meter.Int64ObservableGauge(
		"readiness.dependency.up",
		metric.WithDescription("Result of the latest readiness probe"),
		metric.WithUnit("{status}"),
	)
	if err != nil {
		return nil, err
	}

	hm.failureStreak, err = meter.Int64ObservableGauge(
		"readiness.dependency.failure_streak",
		metric.WithDescription("Consecutive failed readiness probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	hm.sinceSuccess, err = meter.Float64ObservableGauge(
		"readiness.dependency.since_success",
		metric.WithDescription("Seconds since the dependency last answered"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	hm.probeLatency, err = meter.Float64Histogram(
		"readiness.probe.duration",
		metric.WithDescription("Readiness probe duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0),
	)
	if err != nil {
		return nil, err
	}

	hm.serviceInfo, err = meter.Int64ObservableGauge(
		"service.info",
		metric.WithDescription("Service metadata, always 1"),
		metric.WithUnit("{info}"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(hm.observe, hm.up, hm.failureStreak, hm.sinceSuccess)
	if err != nil {
		return nil, err
	}

	return hm, nil
}

func (hm *HealthMetrics) observe(_ context.Context, observer metric.Observer) error {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	now := hm.now()
	for name, state := range hm.dependencies {
		attrs := metric.WithAttributes(attribute.String("dependency", name))

		var up int64
		if state.up {
			up = 1
		}
		observer.ObserveInt64(hm.up, up, attrs)
		observer.ObserveInt64(hm.failureStreak, state.failures, attrs)
		if !state.lastSuccess.IsZero() {
			observer.ObserveFloat64(hm.sinceSuccess, now.Sub(state.lastSuccess).Seconds(), attrs)
		}
	}
	return nil
}

func (hm *HealthMetrics) RegisterServiceInfo(ctx context.Context, meter metric.Meter, serviceName, version, env string) error {
	attrs := metric.WithAttributes(
		attribute.String("service_name", serviceName),
		attribute.String("version", version),
		attribute.String("environment", env),
	)
	_, err := meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(hm.serviceInfo, 1, attrs)
			return nil
		},
		hm.serviceInfo,
	)
	return err
}

// RecordDependencyCheck stores the outcome of a readiness probe against a dependency.
func (hm *HealthMetrics) RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil {
		return
	}

	hm.mu.Lock()
	if hm.dependencies == nil {
		hm.dependencies = make(map[string]*dependencyState)
	}
	state, ok := hm.dependencies[dependency]
	if !ok {
		state = &dependencyState{}
		hm.dependencies[dependency] = state
	}
	state.up = err == nil
	if err == nil {
		state.failures = 0
		if hm.now != nil {
			state.lastSuccess = hm.now()
		} else {
			state.lastSuccess = time.Now()
		}
	} else {
		state.failures++
	}
	hm.mu.Unlock()

	if hm.probeLatency != nil {
		hm.probeLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("dependency", dependency),
				attribute.Bool("success", err == nil),
			))
	}
}

// FailureStreak returns how many probes in a row failed for dependency.
func (hm *HealthMetrics) FailureStreak(dependency string) int64 {
	if hm == nil {
		return 0
	}
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	if state, ok := hm.dependencies[dependency]; ok {
		return state.failures
	}
	return 0
}
