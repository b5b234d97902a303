package academic

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-service/common/metrics"
	"school-service/internal/apperror"
	"school-service/internal/db"

	"github.com/uptrace/bun"
)

type Repository interface {
	CreateMany(ctx context.Context, idb bun.IDB, records []TestRecord) error
	ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]TestRecord, int, error)
	// GetForUpdate locks the row for the rest of idb's transaction.
	GetForUpdate(ctx context.Context, idb bun.IDB, id int64) (*TestRecord, error)
	Update(ctx context.Context, record *TestRecord) error
	Delete(ctx context.Context, idb bun.IDB, id int64) error
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

func (r *repository) CreateMany(ctx context.Context, idb bun.IDB, records []TestRecord) error {
	start := time.Now()
	_, err := idb.NewInsert().Model(&records).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "test_records", time.Since(start), err)

	if _, ok := db.IsForeignKeyViolation(err); ok {
		return apperror.NotFound("academic.CreateMany", "student not found")
	}
	return err
}

func (r *repository) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]TestRecord, int, error) {
	start := time.Now()
	var records []TestRecord

	q := r.db.NewSelect().
		Model(&records).
		Where("tr.student_id = ?", studentID).
		OrderExpr("tr.test_date DESC").
		OrderExpr("tr.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "test_records", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

func (r *repository) GetForUpdate(ctx context.Context, idb bun.IDB, id int64) (*TestRecord, error) {
	start := time.Now()
	record := new(TestRecord)
	err := idb.NewSelect().Model(record).Where("tr.id = ?", id).For("UPDATE").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "test_records", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *repository) Update(ctx context.Context, record *TestRecord) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(record).
		Column("test_date", "test_name", "subject", "total_marks", "obtained_marks", "percentage", "remarks").
		WherePK().
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "test_records", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTestRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, idb bun.IDB, id int64) error {
	start := time.Now()
	_, err := idb.NewDelete().Model((*TestRecord)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "test_records", time.Since(start), err)
	return err
}
