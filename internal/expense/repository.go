package expense

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-service/common/metrics"
	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	GetByID(ctx context.Context, id int64) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, e *Expense) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(e).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "expenses", time.Since(start), err)
	return err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	start := time.Now()
	var expenses []Expense

	q := r.db.NewSelect().Model(&expenses)
	if filter.Category != "" {
		q = q.Where("e.category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("e.status = ?", filter.Status)
	}
	if filter.Month != "" {
		year, month, err := calendar.ParseMonth(filter.Month)
		if err != nil {
			return nil, 0, apperror.Validation("expense.List", err.Error())
		}
		from, to := calendar.MonthRange(year, month)
		q = q.Where("e.expense_date >= ?", from).Where("e.expense_date < ?", to)
	}
	q = q.OrderExpr("e.expense_date DESC").OrderExpr("e.id DESC")

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "expenses", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return expenses, count, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Expense, error) {
	start := time.Now()
	e := new(Expense)
	err := r.db.NewSelect().Model(e).Where("e.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "expenses", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *repository) Update(ctx context.Context, e *Expense) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(e).
		Column("title", "category", "amount", "expense_date", "status").
		WherePK().
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "expenses", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Expense)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "expenses", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
