package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	enrollments        metric.Int64Counter
	studentsEnrolled   metric.Int64Counter
	aggregateFailures  metric.Int64Counter
	messagesDispatched metric.Int64Counter
	reportsServed      metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.enrollments, err = meter.Int64Counter(
		"school_service.enrollments",
		metric.WithDescription("Total number of committed enrollment batches"),
		metric.WithUnit("{enrollment}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsEnrolled, err = meter.Int64Counter(
		"school_service.students.enrolled",
		metric.WithDescription("Total number of students created"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.aggregateFailures, err = meter.Int64Counter(
		"school_service.aggregate.failures",
		metric.WithDescription("Derived field recomputations that failed"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	m.messagesDispatched, err = meter.Int64Counter(
		"school_service.messages.dispatched",
		metric.WithDescription("Total number of message intents handed to the dispatcher"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	m.reportsServed, err = meter.Int64Counter(
		"school_service.reports.served",
		metric.WithDescription("Total number of reports computed"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordEnrollment(ctx context.Context) {
	if m != nil && m.enrollments != nil {
		m.enrollments.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentsEnrolled(ctx context.Context, n int) {
	if m != nil && m.studentsEnrolled != nil {
		m.studentsEnrolled.Add(ctx, int64(n))
	}
}

func (m *Metrics) RecordAggregateFailure(ctx context.Context, field string) {
	if m != nil && m.aggregateFailures != nil {
		m.aggregateFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
	}
}

func (m *Metrics) RecordMessagesDispatched(ctx context.Context, n int) {
	if m != nil && m.messagesDispatched != nil {
		m.messagesDispatched.Add(ctx, int64(n))
	}
}

func (m *Metrics) RecordReportServed(ctx context.Context, report string) {
	if m != nil && m.reportsServed != nil {
		m.reportsServed.Add(ctx, 1, metric.WithAttributes(attribute.String("report", report)))
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
