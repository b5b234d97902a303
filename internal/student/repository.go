package student

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
	// Create inserts through idb, or through the repository's own
	// connection when idb is nil.
	Create(ctx context.Context, idb bun.IDB, student *Student) error
	List(ctx context.Context, filter ListFilter) ([]Student, int, error)
	GetByID(ctx context.Context, id int64) (*Student, error)
	Update(ctx context.Context, student *Student, columns ...string) error
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

func (r *repository) Create(ctx context.Context, idb bun.IDB, student *Student) error {
	if idb == nil {
		idb = r.db
	}
	start := time.Now()
	_, err := idb.NewInsert().Model(student).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "students", time.Since(start), err)

	if _, ok := db.IsForeignKeyViolation(err); ok {
		return apperror.NotFound("student.Create", "guardian not found")
	}
	return err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Student, int, error) {
	start := time.Now()
	var students []Student

	q := r.db.NewSelect().Model(&students).Relation("Guardian")
	if filter.Grade != "" {
		q = q.Where("s.grade = ?", filter.Grade)
	}
	if filter.IsActive != nil {
		q = q.Where("s.is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("s.name ILIKE ?", pattern).
				WhereOr("guardian.name ILIKE ?", pattern).
				WhereOr("guardian.phone_number ILIKE ?", pattern)
		})
	}

	order, ok := orderings[filter.Ordering]
	if !ok {
		order = orderings["-date_joined"]
	}
	q = q.OrderExpr(order + " NULLS LAST").OrderExpr("s.id DESC")

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return students, count, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().
		Model(student).
		Relation("Guardian").
		Where("s.id = ?", id).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

// Update writes only the named columns plus updated_at. Derived columns are
// rejected so that nothing but the maintainer can change them.
func (r *repository) Update(ctx context.Context, student *Student, columns ...string) error {
	for _, c := range columns {
		switch c {
		case "total_tests_conducted", "overall_attendance", "latest_fee_status":
			return apperror.Validationf("student.Update", "%s is derived and cannot be set", c)
		}
	}

	start := time.Now()
	student.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(student).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "students", time.Since(start), err)

	if err != nil {
		if _, ok := db.IsForeignKeyViolation(err); ok {
			return apperror.NotFound("student.Update", "guardian not found")
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// Delete removes the student; fee, test and attendance rows go with it
// through ON DELETE CASCADE.
func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Student)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "students", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}
