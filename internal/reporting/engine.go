// Package reporting computes read-only rollups over the entity store. Every
// call queries live rows; nothing is cached and empty aggregates read as 0.
package reporting

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-service/internal/apperror"
	"school-service/internal/calendar"
	"school-service/internal/expense"
	"school-service/internal/fee"
	"school-service/internal/ranking"
	"school-service/internal/student"

	"github.com/uptrace/bun"
)

const recentStudentsLimit = 5

type Engine struct {
	db    bun.IDB
	ranks ranking.Repository
	now   func() time.Time
}

func NewEngine(db bun.IDB, ranks ranking.Repository) *Engine {
	return &Engine{
		db:    db,
		ranks: ranks,
		now:   time.Now,
	}
}

func (e *Engine) DashboardSnapshot(ctx context.Context) (*Dashboard, error) {
	const op = "reporting.DashboardSnapshot"
	d := &Dashboard{RecentStudents: []RecentStudent{}}

	err := e.db.NewSelect().
		Model((*student.Student)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("count(*) FILTER (WHERE s.is_active)").
		Scan(ctx, &d.TotalStudents, &d.TotalActiveStudents)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	err = e.db.NewSelect().
		Model((*student.Student)(nil)).
		Column("s.id", "s.name", "s.date_joined", "s.created_at").
		ColumnExpr("COALESCE(s.grade, '') AS grade").
		Where("s.is_active").
		OrderExpr("s.created_at DESC, s.id DESC").
		Limit(recentStudentsLimit).
		Scan(ctx, &d.RecentStudents)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	err = e.db.NewSelect().
		Model((*fee.FeePayment)(nil)).
		ColumnExpr("COALESCE(SUM(fp.amount) FILTER (WHERE fp.status = ?), 0)", fee.StatusPending).
		ColumnExpr("COALESCE(SUM(fp.amount) FILTER (WHERE fp.status = ?), 0)", fee.StatusPaid).
		ColumnExpr("COALESCE(SUM(fp.amount), 0)").
		Scan(ctx, &d.PendingFees, &d.PaidFees, &d.TotalRevenue)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	return d, nil
}

// MonthlyFinanceSummary totals fees and expenses falling in month/year.
// A zero month or year is taken from the current date.
func (e *Engine) MonthlyFinanceSummary(ctx context.Context, month, year int) (*MonthlyFinance, error) {
	const op = "reporting.MonthlyFinanceSummary"

	now := e.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, apperror.Validationf(op, "month must be between 1 and 12, got %d", month)
	}
	if year < 1900 || year > 9999 {
		return nil, apperror.Validationf(op, "invalid year %d", year)
	}

	from, to := calendar.MonthRange(year, time.Month(month))
	summary := &MonthlyFinance{
		Month:              month,
		Year:               year,
		ExpensesByCategory: make(map[string]float64, len(expense.Categories)),
	}
	for _, c := range expense.Categories {
		summary.ExpensesByCategory[c] = 0
	}

	err := e.db.NewSelect().
		Model((*fee.FeePayment)(nil)).
		ColumnExpr("COALESCE(SUM(fp.amount), 0)").
		Where("fp.month_paid_for >= ?", from).
		Where("fp.month_paid_for < ?", to).
		Scan(ctx, &summary.Revenue)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	var byCategory []struct {
		Category string  `bun:"category"`
		Total    float64 `bun:"total"`
	}
	err = e.db.NewSelect().
		Model((*expense.Expense)(nil)).
		Column("e.category").
		ColumnExpr("COALESCE(SUM(e.amount), 0) AS total").
		Where("e.expense_date >= ?", from).
		Where("e.expense_date < ?", to).
		Group("e.category").
		Scan(ctx, &byCategory)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	for _, row := range byCategory {
		summary.ExpensesByCategory[row.Category] += row.Total
		summary.TotalExpenses += row.Total
	}
	summary.Net = summary.Revenue - summary.TotalExpenses

	return summary, nil
}

func (e *Engine) AcademicSummary(ctx context.Context, studentID int64) (*AcademicSummary, error) {
	const op = "reporting.AcademicSummary"

	if studentID <= 0 {
		return nil, apperror.Validation(op, "invalid student id")
	}

	s := new(student.Student)
	err := e.db.NewSelect().
		Model(s).
		Column("s.id", "s.name", "s.grade", "s.total_tests_conducted").
		Where("s.id = ?", studentID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, student.ErrStudentNotFound
		}
		return nil, apperror.Internal(op, err)
	}

	summary := &AcademicSummary{
		StudentID:           s.ID,
		Name:                s.Name,
		Grade:               s.Grade,
		TotalTestsConducted: s.TotalTestsConducted,
	}

	q := e.db.NewSelect().Model((*student.Student)(nil)).ColumnExpr("count(*)")
	if s.Grade == "" {
		q = q.Where("s.grade IS NULL")
	} else {
		q = q.Where("s.grade = ?", s.Grade)
	}
	if err := q.Scan(ctx, &summary.TotalStudentsInClass); err != nil {
		return nil, apperror.Internal(op, err)
	}

	err = e.db.NewSelect().
		TableExpr("test_records AS tr").
		ColumnExpr("COALESCE(SUM(tr.obtained_marks), 0)").
		ColumnExpr("COALESCE(SUM(tr.total_marks), 0)").
		ColumnExpr("COALESCE(AVG(tr.percentage), 0)").
		Where("tr.student_id = ?", studentID).
		Scan(ctx, &summary.TotalObtainedMarks, &summary.TotalMarks, &summary.AveragePercentage)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	position, err := e.ranks.ClassPosition(ctx, studentID)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	summary.ClassPosition = position

	return summary, nil
}

// ClassStandings ranks every student of grade. An empty grade ranks the
// students that have none.
func (e *Engine) ClassStandings(ctx context.Context, grade string) (*ClassStandings, error) {
	const op = "reporting.ClassStandings"

	if grade != "" && !student.ValidGrade(grade) {
		return nil, apperror.Validationf(op, "unknown grade %q", grade)
	}

	entries, err := e.ranks.ClassTotals(ctx, grade)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	return &ClassStandings{Grade: grade, Standings: ranking.DenseRank(entries)}, nil
}
