package attendance

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
	Upsert(ctx context.Context, records []Record) error
	UpdateStatus(ctx context.Context, id int64, status string) (*Record, error)
	Delete(ctx context.Context, id int64) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
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

// Upsert writes every record in a single statement; an existing row for the
// same (student, date) takes the new status.
func (r *repository) Upsert(ctx context.Context, records []Record) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&records).
		On("CONFLICT (student_id, date) DO UPDATE").
		Set("status = EXCLUDED.status").
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "upsert", "attendance_records", time.Since(start), err)

	if _, ok := db.IsForeignKeyViolation(err); ok {
		return apperror.NotFound("attendance.Upsert", "student not found")
	}
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string) (*Record, error) {
	start := time.Now()
	var updated []Record
	err := r.db.NewUpdate().
		Model(&updated).
		Set("status = ?", status).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "attendance_records", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrRecordNotFound
	}
	return &updated[0], nil
}

func (r *repository) Delete(ctx context.Context, id int64) (*Record, error) {
	start := time.Now()
	var deleted []Record
	err := r.db.NewDelete().
		Model(&deleted).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "attendance_records", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, ErrRecordNotFound
	}
	return &deleted[0], nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	start := time.Now()
	var records []Record

	q := r.db.NewSelect().Model(&records).Where("ar.student_id = ?", filter.StudentID)
	if filter.Month != "" {
		year, month, err := calendar.ParseMonth(filter.Month)
		if err != nil {
			return nil, 0, apperror.Validation("attendance.List", err.Error())
		}
		from, to := calendar.MonthRange(year, month)
		q = q.Where("ar.date >= ?", from).Where("ar.date < ?", to)
	}
	q = q.OrderExpr("ar.date DESC")

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "attendance_records", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}
