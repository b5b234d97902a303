package metrics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Query outcomes. Lookups that find nothing are not failures, and the
// constraint outcomes are what the repositories turn into not_found and
// conflict responses.
const (
	OutcomeOK              = "ok"
	OutcomeNoRows          = "no_rows"
	OutcomeUniqueViolation = "unique_violation"
	OutcomeForeignKey      = "foreign_key_violation"
	OutcomeSerialization   = "serialization_failure"
	OutcomeDeadlock        = "deadlock"
	OutcomeCanceled        = "canceled"
	OutcomeError           = "error"
)

var sqlstateOutcomes = map[string]string{
	"23505": OutcomeUniqueViolation,
	"23503": OutcomeForeignKey,
	"40001": OutcomeSerialization,
	"40P01": OutcomeDeadlock,
	"57014": OutcomeCanceled,
}

// Outcome classifies the error of one statement.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, sql.ErrNoRows):
		return OutcomeNoRows
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		if outcome, ok := sqlstateOutcomes[pgErr.Field('C')]; ok {
			return outcome
		}
	}
	return OutcomeError
}

// DatabaseMetrics records per-statement timings reported by the repositories
// and, installed as a bun query hook, the fate of every transaction.
type DatabaseMetrics struct {
	poolConnections metric.Int64ObservableGauge
	poolWaits       metric.Int64ObservableCounter
	queryDuration   metric.Float64Histogram
	queryFailures   metric.Int64Counter
	transactions    metric.Int64Counter
	db              *sql.DB
}

var _ bun.QueryHook = (*DatabaseMetrics)(nil)

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	dm := &DatabaseMetrics{}

	var err error

	// state = idle | used
	dm.poolConnections, err = meter.Int64ObservableGauge(
		"db.client.connections.usage",
		metric.WithDescription("Pooled connections by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	dm.poolWaits, err = meter.Int64ObservableCounter(
		"db.client.connections.waits",
		metric.WithDescription("Times a caller waited for a free pooled connection"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 1ms .. 5s, the class ranking and finance rollups sit in the upper half
	dm.queryDuration, err = meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Statement duration by operation, table and outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, err
	}

	dm.queryFailures, err = meter.Int64Counter(
		"db.client.operation.failures",
		metric.WithDescription("Statements that failed, by outcome"),
		metric.WithUnit("{statement}"),
	)
	if err != nil {
		return nil, err
	}

	dm.transactions, err = meter.Int64Counter(
		"db.client.transactions",
		metric.WithDescription("Finished transactions by result (commit, rollback, failed)"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, err
	}

	return dm, nil
}

// RegisterDB starts observing pool statistics of db.
func (dm *DatabaseMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	dm.db = db

	idle := metric.WithAttributes(attribute.String("state", "idle"))
	used := metric.WithAttributes(attribute.String("state", "used"))

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if dm.db == nil {
				return nil
			}
			stats := dm.db.Stats()
			observer.ObserveInt64(dm.poolConnections, int64(stats.Idle), idle)
			observer.ObserveInt64(dm.poolConnections, int64(stats.InUse), used)
			observer.ObserveInt64(dm.poolWaits, stats.WaitCount)
			return nil
		},
		dm.poolConnections,
		dm.poolWaits,
	)
	return err
}

// RecordQuery is called by repositories with the raw driver error, before it
// is translated into a domain error.
func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	outcome := Outcome(err)
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("table", table),
		attribute.String("outcome", outcome),
	)

	dm.queryDuration.Record(ctx, duration.Seconds(), attrs)

	if outcome != OutcomeOK && outcome != OutcomeNoRows && dm.queryFailures != nil {
		dm.queryFailures.Add(ctx, 1, attrs)
	}
}

func (dm *DatabaseMetrics) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery counts COMMIT and ROLLBACK statements issued by RunInTx.
func (dm *DatabaseMetrics) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if dm == nil || dm.transactions == nil {
		return
	}

	var result string
	switch event.Operation() {
	case "COMMIT":
		result = "commit"
	case "ROLLBACK":
		result = "rollback"
	default:
		return
	}
	if event.Err != nil {
		result = "failed"
	}

	dm.transactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("outcome", Outcome(event.Err)),
	))
}
