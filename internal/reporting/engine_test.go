package reporting_test

import (
	"context"
	"testing"
	"time"

	commonmetrics "school-service/common/metrics"
	"school-service/internal/academic"
	"school-service/internal/apperror"
	"school-service/internal/expense"
	"school-service/internal/fee"
	"school-service/internal/ranking"
	"school-service/internal/reporting"
	"school-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func insert(t *testing.T, db *bun.DB, model any) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Exec(context.Background())
	require.NoError(t, err)
}

func TestEngine(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.Migrate(t)

	engine := reporting.NewEngine(pg.DB, ranking.NewRepository(pg.DB, commonmetrics.NewMock()))
	ctx := context.Background()

	t.Run("MonthlyFinance_EmptyMonthIsAllZero", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		summary, err := engine.MonthlyFinanceSummary(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Month)
		assert.Equal(t, 2025, summary.Year)
		assert.Zero(t, summary.Revenue)
		assert.Zero(t, summary.TotalExpenses)
		assert.Zero(t, summary.Net)
		assert.Equal(t, map[string]float64{"salary": 0, "rent": 0, "utilities": 0, "other": 0}, summary.ExpensesByCategory)
	})

	t.Run("MonthlyFinance_OnlyRowsInsideTheMonth", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")

		insert(t, pg.DB, &[]fee.FeePayment{
			{StudentID: s.ID, Amount: 3000, MonthPaidFor: date(2025, 3, 1), DatePaid: date(2025, 3, 4), Status: fee.StatusPaid},
			{StudentID: s.ID, Amount: 3000, MonthPaidFor: date(2025, 4, 1), DatePaid: date(2025, 3, 30), Status: fee.StatusPending},
		})
		insert(t, pg.DB, &[]expense.Expense{
			{Title: "March salaries", Category: "salary", Amount: 1200, ExpenseDate: date(2025, 3, 31), Status: "paid"},
			{Title: "Electricity", Category: "utilities", Amount: 300.5, ExpenseDate: date(2025, 3, 1), Status: "paid"},
			{Title: "April rent", Category: "rent", Amount: 900, ExpenseDate: date(2025, 4, 1), Status: "pending"},
		})

		summary, err := engine.MonthlyFinanceSummary(ctx, 3, 2025)
		require.NoError(t, err)
		assert.InDelta(t, 3000.0, summary.Revenue, 0.001)
		assert.InDelta(t, 1500.5, summary.TotalExpenses, 0.001)
		assert.InDelta(t, 1499.5, summary.Net, 0.001)
		assert.InDelta(t, 1200.0, summary.ExpensesByCategory["salary"], 0.001)
		assert.InDelta(t, 300.5, summary.ExpensesByCategory["utilities"], 0.001)
		assert.Zero(t, summary.ExpensesByCategory["rent"])
	})

	t.Run("MonthlyFinance_RejectsBadPeriod", func(t *testing.T) {
		_, err := engine.MonthlyFinanceSummary(ctx, 13, 2025)
		assert.ErrorIs(t, err, apperror.ErrValidation)

		_, err = engine.MonthlyFinanceSummary(ctx, 1, 10000)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("MonthlyFinance_ZeroDefaultsToNow", func(t *testing.T) {
		now := time.Now()
		summary, err := engine.MonthlyFinanceSummary(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int(now.Month()), summary.Month)
		assert.Equal(t, now.Year(), summary.Year)
	})

	t.Run("Dashboard", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		empty, err := engine.DashboardSnapshot(ctx)
		require.NoError(t, err)
		assert.Zero(t, empty.TotalStudents)
		assert.Empty(t, empty.RecentStudents)
		assert.Zero(t, empty.TotalRevenue)

		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		ali := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "10")
		sara := testdb.SeedStudent(t, pg.DB, g.ID, "Sara", "")
		_, err = pg.DB.NewUpdate().Table("students").Set("is_active = false").Where("id = ?", sara.ID).Exec(ctx)
		require.NoError(t, err)

		insert(t, pg.DB, &[]fee.FeePayment{
			{StudentID: ali.ID, Amount: 1000, MonthPaidFor: date(2025, 1, 1), DatePaid: date(2025, 1, 2), Status: fee.StatusPaid},
			{StudentID: ali.ID, Amount: 500, MonthPaidFor: date(2025, 2, 1), DatePaid: date(2025, 2, 2), Status: fee.StatusPending},
			{StudentID: ali.ID, Amount: 250, MonthPaidFor: date(2025, 3, 1), DatePaid: date(2025, 3, 2), Status: fee.StatusLate},
		})

		d, err := engine.DashboardSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, d.TotalStudents)
		assert.Equal(t, 1, d.TotalActiveStudents)
		require.Len(t, d.RecentStudents, 1)
		assert.Equal(t, "Ali", d.RecentStudents[0].Name)
		assert.InDelta(t, 1000.0, d.PaidFees, 0.001)
		assert.InDelta(t, 500.0, d.PendingFees, 0.001)
		assert.InDelta(t, 1750.0, d.TotalRevenue, 0.001)
	})

	t.Run("AcademicSummary_NoTestsIsZero", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		s := testdb.SeedStudent(t, pg.DB, g.ID, "Ali", "")

		summary, err := engine.AcademicSummary(ctx, s.ID)
		require.NoError(t, err)
		assert.Zero(t, summary.TotalObtainedMarks)
		assert.Zero(t, summary.TotalMarks)
		assert.Zero(t, summary.AveragePercentage)
		assert.Zero(t, summary.TotalTestsConducted)
		assert.Equal(t, 1, summary.TotalStudentsInClass)
		assert.Equal(t, 1, summary.ClassPosition)
	})

	t.Run("AcademicSummary_DenseRankWithinGrade", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
		g := testdb.SeedGuardian(t, pg.DB, "42101-0000001-1", "03000000001")
		a := testdb.SeedStudent(t, pg.DB, g.ID, "A", "7")
		b := testdb.SeedStudent(t, pg.DB, g.ID, "B", "7")
		c := testdb.SeedStudent(t, pg.DB, g.ID, "C", "7")
		d := testdb.SeedStudent(t, pg.DB, g.ID, "D", "7")
		testdb.SeedStudent(t, pg.DB, g.ID, "Other grade", "8")

		scores := map[int64]float64{a.ID: 90, b.ID: 90, c.ID: 80}
		for id, obtained := range scores {
			insert(t, pg.DB, &academic.TestRecord{
				StudentID: id, TestDate: date(2025, 3, 1), TestName: "Final", Subject: "Math",
				TotalMarks: 100, ObtainedMarks: obtained,
			})
		}

		want := map[int64]int{a.ID: 1, b.ID: 1, c.ID: 2, d.ID: 3}
		for id, position := range want {
			summary, err := engine.AcademicSummary(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, position, summary.ClassPosition, "student %d", id)
			assert.Equal(t, 4, summary.TotalStudentsInClass)
		}

		summary, err := engine.AcademicSummary(ctx, a.ID)
		require.NoError(t, err)
		assert.InDelta(t, 90.0, summary.TotalObtainedMarks, 0.001)
		assert.InDelta(t, 100.0, summary.TotalMarks, 0.001)
		assert.InDelta(t, 90.0, summary.AveragePercentage, 0.001)

		standings, err := engine.ClassStandings(ctx, "7")
		require.NoError(t, err)
		require.Len(t, standings.Standings, 4)
		assert.Equal(t, 1, standings.Standings[0].Position)
		assert.Equal(t, 1, standings.Standings[1].Position)
		assert.Equal(t, 2, standings.Standings[2].Position)
		assert.Equal(t, c.ID, standings.Standings[2].StudentID)
		assert.Equal(t, 3, standings.Standings[3].Position)
		assert.Nil(t, standings.Standings[3].Total)
	})

	t.Run("AcademicSummary_MissingStudent", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, testdb.AllTables...)

		_, err := engine.AcademicSummary(ctx, 424242)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("ClassStandings_UnknownGrade", func(t *testing.T) {
		_, err := engine.ClassStandings(ctx, "13")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
