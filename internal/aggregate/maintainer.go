// Package aggregate keeps the derived columns of a student row
// (overall_attendance, total_tests_conducted, latest_fee_status) equal to
// what their source rows say. Every write here targets only the derived
// column it owns and never triggers further recomputation.
package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"

	"school-service/common/logger"
	"school-service/internal/academic"
	"school-service/internal/apperror"
	"school-service/internal/attendance"
	"school-service/internal/fee"
	"school-service/internal/metrics"
	"school-service/internal/student"

	"github.com/uptrace/bun"
)

// Snapshot is the state of a student's derived fields after Resync.
type Snapshot struct {
	StudentID           int64   `json:"student_id"`
	OverallAttendance   float64 `json:"overall_attendance"`
	TotalTestsConducted int     `json:"total_tests_conducted"`
	LatestFeeStatus     string  `json:"latest_fee_status"`
}

// AttendanceRate is present/total*100 rounded to two decimals, or 0 when
// there are no rows.
func AttendanceRate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

type Maintainer struct {
	db       *bun.DB
	logger   *slog.Logger
	operator *slog.Logger
	metrics  *metrics.Metrics
}

func NewMaintainer(db *bun.DB, log *slog.Logger, m *metrics.Metrics) *Maintainer {
	return &Maintainer{
		db:       db,
		logger:   log,
		operator: logger.Operator(log),
		metrics:  m,
	}
}

func skip(op string) error {
	return apperror.Skip(op, "student no longer exists")
}

// lock takes the student's row lock for the rest of idb's transaction so
// that concurrent recomputations for one student run one after another and
// the last one always reads the latest committed rows.
func lock(ctx context.Context, idb bun.IDB, op string, studentID int64) error {
	var id int64
	err := idb.NewSelect().
		Model((*student.Student)(nil)).
		Column("s.id").
		Where("s.id = ?", studentID).
		For("UPDATE").
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return skip(op)
	}
	return err
}

// RecomputeAttendance recounts the student's attendance rows and writes the
// rate. It should run inside a transaction; the row lock it takes is held
// until that transaction ends.
func (m *Maintainer) RecomputeAttendance(ctx context.Context, idb bun.IDB, studentID int64) (float64, error) {
	const op = "aggregate.RecomputeAttendance"

	if err := lock(ctx, idb, op, studentID); err != nil {
		return 0, err
	}

	var present, total int
	err := idb.NewSelect().
		Model((*attendance.Record)(nil)).
		ColumnExpr("count(*) FILTER (WHERE ar.status = ?)", attendance.StatusPresent).
		ColumnExpr("count(*)").
		Where("ar.student_id = ?", studentID).
		Scan(ctx, &present, &total)
	if err != nil {
		return 0, apperror.Internal(op, err)
	}

	rate := AttendanceRate(present, total)
	_, err = idb.NewUpdate().
		Model((*student.Student)(nil)).
		Set("overall_attendance = ?", rate).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return 0, apperror.Internal(op, err)
	}
	return rate, nil
}

// RecomputeTestCount moves total_tests_conducted by delta, clamped at zero.
func (m *Maintainer) RecomputeTestCount(ctx context.Context, idb bun.IDB, studentID int64, delta int) error {
	const op = "aggregate.RecomputeTestCount"

	result, err := idb.NewUpdate().
		Model((*student.Student)(nil)).
		Set("total_tests_conducted = GREATEST(total_tests_conducted + ?, 0)", delta).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return apperror.Internal(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Internal(op, err)
	}
	if rowsAffected == 0 {
		return skip(op)
	}
	return nil
}

// RecomputeLatestFeeStatus copies the status of the payment for the latest
// month (latest date_paid breaks ties) onto the student, or no_payment.
func (m *Maintainer) RecomputeLatestFeeStatus(ctx context.Context, idb bun.IDB, studentID int64) (string, error) {
	const op = "aggregate.RecomputeLatestFeeStatus"

	if err := lock(ctx, idb, op, studentID); err != nil {
		return "", err
	}

	status := student.NoPaymentStatus
	var latest []string
	err := idb.NewSelect().
		Model((*fee.FeePayment)(nil)).
		Column("fp.status").
		Where("fp.student_id = ?", studentID).
		OrderExpr("fp.month_paid_for DESC, fp.date_paid DESC, fp.id DESC").
		Limit(1).
		Scan(ctx, &latest)
	if err != nil {
		return "", apperror.Internal(op, err)
	}
	if len(latest) > 0 {
		status = latest[0]
	}

	_, err = idb.NewUpdate().
		Model((*student.Student)(nil)).
		Set("latest_fee_status = ?", status).
		Where("id = ?", studentID).
		Exec(ctx)
	if err != nil {
		return "", apperror.Internal(op, err)
	}
	return status, nil
}

// SyncAttendance recomputes each student's rate in its own transaction.
// Failures go to the operator channel; the caller's write has already
// committed and is not affected.
func (m *Maintainer) SyncAttendance(ctx context.Context, studentIDs ...int64) {
	for _, id := range unique(studentIDs) {
		err := m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			_, err := m.RecomputeAttendance(ctx, tx, id)
			return err
		})
		m.report(ctx, "overall_attendance", id, err)
	}
}

// SyncFeeStatus is SyncAttendance for latest_fee_status.
func (m *Maintainer) SyncFeeStatus(ctx context.Context, studentIDs ...int64) {
	for _, id := range unique(studentIDs) {
		err := m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			_, err := m.RecomputeLatestFeeStatus(ctx, tx, id)
			return err
		})
		m.report(ctx, "latest_fee_status", id, err)
	}
}

func (m *Maintainer) report(ctx context.Context, field string, studentID int64, err error) {
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrComputationSkip):
		m.logger.InfoContext(ctx, "recompute skipped", "field", field, "student_id", studentID)
	default:
		m.metrics.RecordAggregateFailure(ctx, field)
		m.operator.ErrorContext(ctx, "failed to recompute derived field",
			"field", field,
			"student_id", studentID,
			"error", err,
		)
	}
}

// Resync rebuilds every derived field of the student from its live rows.
// Running it twice over the same data gives the same result.
func (m *Maintainer) Resync(ctx context.Context, studentID int64) (*Snapshot, error) {
	const op = "aggregate.Resync"

	snap := &Snapshot{StudentID: studentID}
	err := m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rate, err := m.RecomputeAttendance(ctx, tx, studentID)
		if err != nil {
			return err
		}
		snap.OverallAttendance = rate

		count, err := tx.NewSelect().
			Model((*academic.TestRecord)(nil)).
			Where("tr.student_id = ?", studentID).
			Count(ctx)
		if err != nil {
			return apperror.Internal(op, err)
		}
		_, err = tx.NewUpdate().
			Model((*student.Student)(nil)).
			Set("total_tests_conducted = ?", count).
			Where("id = ?", studentID).
			Exec(ctx)
		if err != nil {
			return apperror.Internal(op, err)
		}
		snap.TotalTestsConducted = count

		status, err := m.RecomputeLatestFeeStatus(ctx, tx, studentID)
		if err != nil {
			return err
		}
		snap.LatestFeeStatus = status
		return nil
	})
	if errors.Is(err, apperror.ErrComputationSkip) {
		return nil, student.ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "derived fields resynced",
		"student_id", studentID,
		"overall_attendance", snap.OverallAttendance,
		"total_tests_conducted", snap.TotalTestsConducted,
		"latest_fee_status", snap.LatestFeeStatus,
	)
	return snap, nil
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
