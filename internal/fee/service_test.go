package fee_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	commonmetrics "school-service/common/metrics"
	"school-service/internal/aggregate"
	"school-service/internal/apperror"
	"school-service/internal/fee"
	"school-service/internal/metrics"
	"school-service/testing/testdb"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	validate := validator.New()

	t.Run("FullDateIsMovedToFirstOfMonth", func(t *testing.T) {
		p, err := fee.Build(validate, fee.Input{StudentID: 1, Amount: 1500, MonthPaidFor: "2025-01-17"})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), p.MonthPaidFor)
		assert.Equal(t, fee.StatusPending, p.Status)
	})

	t.Run("YearMonthIsAccepted", func(t *testing.T) {
		p, err := fee.Build(validate, fee.Input{StudentID: 1, Amount: 1500, MonthPaidFor: "2025-02", Status: fee.StatusPaid})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), p.MonthPaidFor)
		assert.Equal(t, fee.StatusPaid, p.Status)
	})

	t.Run("Rejected", func(t *testing.T) {
		cases := map[string]fee.Input{
			"missing month":  {StudentID: 1, Amount: 10},
			"garbage month":  {StudentID: 1, Amount: 10, MonthPaidFor: "Jan 2025"},
			"negative":       {StudentID: 1, Amount: -1, MonthPaidFor: "2025-01"},
			"unknown status": {StudentID: 1, Amount: 10, MonthPaidFor: "2025-01", Status: "waived"},
			"no student":     {Amount: 10, MonthPaidFor: "2025-01"},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := fee.Build(validate, in)
				assert.ErrorIs(t, err, apperror.ErrValidation)
			})
		}
	})
}

func TestRecordPayment(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	maintainer := aggregate.NewMaintainer(pg.DB, logger, metrics.NewMock())
	svc := fee.NewService(pg.DB, fee.NewRepository(pg.DB, commonmetrics.NewMock()), maintainer)
	ctx := context.Background()

	t.Run("SameMonthUpdatesInPlace", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")

		first, err := svc.Record(ctx, fee.Input{StudentID: s.ID, Amount: 2000, MonthPaidFor: "2025-01", Status: fee.StatusPending})
		require.NoError(t, err)
		assert.True(t, first.Created)
		assert.Equal(t, "Payment created successfully for January 2025", first.Message)
		assert.Equal(t, fee.StatusPending, testdb.ReloadStudent(t, pg.DB, s.ID).LatestFeeStatus)

		second, err := svc.Record(ctx, fee.Input{StudentID: s.ID, Amount: 2500, MonthPaidFor: "2025-01-20", Status: fee.StatusPaid})
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, "Payment updated successfully for January 2025", second.Message)
		assert.Equal(t, first.Payment.ID, second.Payment.ID)
		assert.InDelta(t, 2500.0, second.Payment.Amount, 0.001)

		payments, total, err := svc.ListPayments(ctx, fee.ListFilter{StudentID: s.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, fee.StatusPaid, payments[0].Status)
		assert.Equal(t, fee.StatusPaid, testdb.ReloadStudent(t, pg.DB, s.ID).LatestFeeStatus)
	})

	t.Run("LatestMonthDrivesStudentStatus", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")

		_, err := svc.Record(ctx, fee.Input{StudentID: s.ID, Amount: 2000, MonthPaidFor: "2025-03", Status: fee.StatusLate})
		require.NoError(t, err)
		older, err := svc.Record(ctx, fee.Input{StudentID: s.ID, Amount: 2000, MonthPaidFor: "2025-02", Status: fee.StatusPaid})
		require.NoError(t, err)

		assert.Equal(t, fee.StatusLate, testdb.ReloadStudent(t, pg.DB, s.ID).LatestFeeStatus)

		payments, _, err := svc.ListPayments(ctx, fee.ListFilter{StudentID: s.ID, Month: "2025-03"})
		require.NoError(t, err)
		require.Len(t, payments, 1)

		require.NoError(t, svc.DeletePayment(ctx, payments[0].ID))
		assert.Equal(t, fee.StatusPaid, testdb.ReloadStudent(t, pg.DB, s.ID).LatestFeeStatus)

		require.NoError(t, svc.DeletePayment(ctx, older.Payment.ID))
		assert.Equal(t, "no_payment", testdb.ReloadStudent(t, pg.DB, s.ID).LatestFeeStatus)
	})

	t.Run("UnknownStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		_, err := svc.Record(ctx, fee.Input{StudentID: 424242, Amount: 100, MonthPaidFor: "2025-01"})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("DeleteMissingPayment", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		err := svc.DeletePayment(ctx, 424242)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("ListRejectsUnknownStatus", func(t *testing.T) {
		_, _, err := svc.ListPayments(ctx, fee.ListFilter{Status: "waived"})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
