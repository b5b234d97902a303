package fee

import (
	"context"
	"time"

	"school-service/common/metrics"
	"school-service/internal/apperror"
	"school-service/internal/calendar"
	"school-service/internal/db"

	"github.com/uptrace/bun"
)

type Repository interface {
	// Upsert writes the payment for (student, month) through idb, replacing
	// amount, status and date_paid of an existing row for that month.
	Upsert(ctx context.Context, idb bun.IDB, payment *FeePayment) error
	List(ctx context.Context, filter ListFilter) ([]FeePayment, int, error)
	Delete(ctx context.Context, idb bun.IDB, id int64) (*FeePayment, error)
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

func (r *repository) Upsert(ctx context.Context, idb bun.IDB, payment *FeePayment) error {
	start := time.Now()
	_, err := idb.NewInsert().
		Model(payment).
		On("CONFLICT (student_id, month_paid_for) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("status = EXCLUDED.status").
		Set("date_paid = EXCLUDED.date_paid").
		Returning("*, (xmax = 0) AS created").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "upsert", "fee_payments", time.Since(start), err)

	if _, ok := db.IsForeignKeyViolation(err); ok {
		return apperror.NotFound("fee.Upsert", "student not found")
	}
	return err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]FeePayment, int, error) {
	start := time.Now()
	var payments []FeePayment

	q := r.db.NewSelect().Model(&payments)
	if filter.StudentID > 0 {
		q = q.Where("fp.student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("fp.status = ?", filter.Status)
	}
	if filter.Month != "" {
		year, month, err := calendar.ParseMonth(filter.Month)
		if err != nil {
			return nil, 0, apperror.Validation("fee.List", err.Error())
		}
		from, to := calendar.MonthRange(year, month)
		q = q.Where("fp.month_paid_for >= ?", from).Where("fp.month_paid_for < ?", to)
	}

	order, ok := orderings[filter.Ordering]
	if !ok {
		order = orderings["-date_paid"]
	}
	q = q.OrderExpr(order).OrderExpr("fp.id DESC")

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "fee_payments", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return payments, count, nil
}

// Delete removes the payment and returns the deleted row so the caller knows
// which student to recompute.
func (r *repository) Delete(ctx context.Context, idb bun.IDB, id int64) (*FeePayment, error) {
	start := time.Now()
	var deleted []FeePayment
	err := idb.NewDelete().
		Model(&deleted).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "fee_payments", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, ErrPaymentNotFound
	}
	return &deleted[0], nil
}
