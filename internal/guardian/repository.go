package guardian

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
	// GetOrCreateByCNIC inserts g or, when a guardian with the same CNIC
	// already exists, refreshes its non-blank phone/address and returns it.
	GetOrCreateByCNIC(ctx context.Context, idb bun.IDB, g *Guardian) (*Guardian, error)
	Create(ctx context.Context, g *Guardian) error
	List(ctx context.Context, filter ListFilter) ([]Guardian, int, error)
	GetByID(ctx context.Context, id int64) (*Guardian, error)
	ListStudents(ctx context.Context, guardianID int64) ([]StudentSummary, error)
	Update(ctx context.Context, g *Guardian) error
	Delete(ctx context.Context, id int64) error
	TouchLastMessage(ctx context.Context, ids []int64, at time.Time) error
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

func (r *repository) GetOrCreateByCNIC(ctx context.Context, idb bun.IDB, g *Guardian) (*Guardian, error) {
	start := time.Now()

	// A single statement: concurrent callers with the same CNIC serialize on
	// the unique index instead of racing a read against an insert.
	_, err := idb.NewInsert().
		Model(g).
		On("CONFLICT (cnic) DO UPDATE").
		Set("phone_number = COALESCE(NULLIF(EXCLUDED.phone_number, ''), g.phone_number)").
		Set("address = COALESCE(NULLIF(EXCLUDED.address, ''), g.address)").
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "upsert", "guardians", time.Since(start), err)

	if err != nil {
		return nil, translate("guardian.GetOrCreateByCNIC", err)
	}
	return g, nil
}

func (r *repository) Create(ctx context.Context, g *Guardian) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(g).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "guardians", time.Since(start), err)

	if err != nil {
		return translate("guardian.Create", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Guardian, int, error) {
	start := time.Now()
	var guardians []Guardian

	q := r.db.NewSelect().Model(&guardians).OrderExpr("g.id DESC")
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("g.name ILIKE ?", pattern).
				WhereOr("g.phone_number ILIKE ?", pattern).
				WhereOr("g.cnic ILIKE ?", pattern)
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	count, err := q.ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "guardians", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return guardians, count, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Guardian, error) {
	start := time.Now()
	g := new(Guardian)
	err := r.db.NewSelect().Model(g).Where("g.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "guardians", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *repository) ListStudents(ctx context.Context, guardianID int64) ([]StudentSummary, error) {
	start := time.Now()
	students := []StudentSummary{}
	err := r.db.NewSelect().
		TableExpr("students AS s").
		Column("s.id", "s.name", "s.is_active").
		ColumnExpr("COALESCE(s.grade, '') AS grade").
		Where("s.guardian_id = ?", guardianID).
		OrderExpr("s.id ASC").
		Scan(ctx, &students)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	return students, err
}

func (r *repository) Update(ctx context.Context, g *Guardian) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(g).
		Column("name", "cnic", "phone_number", "address").
		WherePK().
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "guardians", time.Since(start), err)

	if err != nil {
		return translate("guardian.Update", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGuardianNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Guardian)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "guardians", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGuardianNotFound
	}
	return nil
}

func (r *repository) TouchLastMessage(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	_, err := r.db.NewUpdate().
		Model((*Guardian)(nil)).
		Set("last_message_send = ?", at).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "guardians", time.Since(start), err)

	return err
}

func translate(op string, err error) error {
	if constraint, ok := db.IsUniqueViolation(err); ok {
		switch constraint {
		case "guardians_phone_number_key":
			return apperror.Conflict(op, "phone number already belongs to another guardian", err)
		case "guardians_cnic_key":
			return apperror.Conflict(op, "cnic already belongs to another guardian", err)
		}
		return apperror.Conflict(op, "guardian already exists", err)
	}
	return err
}
