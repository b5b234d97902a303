package metrics_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"school-service/common/metrics"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Nil", nil, metrics.OutcomeOK},
		{"NoRows", sql.ErrNoRows, metrics.OutcomeNoRows},
		{"WrappedNoRows", fmt.Errorf("get student: %w", sql.ErrNoRows), metrics.OutcomeNoRows},
		{"Canceled", context.Canceled, metrics.OutcomeCanceled},
		{"Deadline", context.DeadlineExceeded, metrics.OutcomeCanceled},
		{"Other", errors.New("boom"), metrics.OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.Outcome(tt.err))
		})
	}
}

func TestMockRecordersAcceptCalls(t *testing.T) {
	m := metrics.NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Database.RecordQuery(ctx, "select", "students", time.Millisecond, nil)
		m.Messaging.RecordPublish(ctx, metrics.Publish{Backend: metrics.BackendNATS, Destination: "guardian.notifications"})
		m.Health.RecordDependencyCheck(ctx, "postgres", time.Millisecond, nil)
	})
	assert.Zero(t, m.Health.FailureStreak("postgres"))
}
