package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Broker backends a producer can publish through.
const (
	BackendKafka = "kafka"
	BackendNATS  = "nats"
)

// Publish describes one message handed to a broker.
type Publish struct {
	Backend      string
	Destination  string
	PayloadBytes int
	Duration     time.Duration
	Err          error
}

// MessagingMetrics covers outgoing guardian notifications. Consumption
// happens in the messaging gateway and is not measured here.
type MessagingMetrics struct {
	published    metric.Int64Counter
	failed       metric.Int64Counter
	payloadSize  metric.Int64Histogram
	publishDelay metric.Float64Histogram
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}

	var err error

	mm.published, err = meter.Int64Counter(
		"notification.intents.published",
		metric.WithDescription("Notification intents accepted by the broker"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return nil, err
	}

	mm.failed, err = meter.Int64Counter(
		"notification.intents.failed",
		metric.WithDescription("Notification intents the broker did not accept"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return nil, err
	}

	// One intent carries the full message text; anything past 64KiB is suspicious.
	mm.payloadSize, err = meter.Int64Histogram(
		"notification.intent.size",
		metric.WithDescription("Encoded intent size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(128, 256, 512, 1024, 4096, 16384, 65536),
	)
	if err != nil {
		return nil, err
	}

	mm.publishDelay, err = meter.Float64Histogram(
		"notification.intent.publish_duration",
		metric.WithDescription("Time until the broker acknowledged an intent"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, err
	}

	return mm, nil
}

func (mm *MessagingMetrics) RecordPublish(ctx context.Context, p Publish) {
	if mm == nil || mm.published == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("backend", p.Backend),
		attribute.String("destination", p.Destination),
	)

	mm.publishDelay.Record(ctx, p.Duration.Seconds(), attrs)
	if p.Err != nil {
		mm.failed.Add(ctx, 1, attrs)
		return
	}
	mm.published.Add(ctx, 1, attrs)
	mm.payloadSize.Record(ctx, int64(p.PayloadBytes), attrs)
}
