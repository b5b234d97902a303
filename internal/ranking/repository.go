package ranking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-service/common/metrics"

	"github.com/uptrace/bun"
)

// classTotals selects every student of one grade with the sum of their
// obtained marks. A NULL grade matches other students without a grade.
const classTotals = `
SELECT s.id AS student_id, s.name, SUM(tr.obtained_marks) AS total
FROM students AS s
LEFT JOIN test_records AS tr ON tr.student_id = s.id
WHERE s.grade IS NOT DISTINCT FROM ?
GROUP BY s.id, s.name`

const classPosition = `
WITH totals AS (
	SELECT s.id, SUM(tr.obtained_marks) AS total
	FROM students AS s
	LEFT JOIN test_records AS tr ON tr.student_id = s.id
	WHERE s.grade IS NOT DISTINCT FROM (SELECT grade FROM students WHERE id = ?)
	GROUP BY s.id
), ranked AS (
	SELECT id, DENSE_RANK() OVER (ORDER BY total DESC NULLS LAST) AS position
	FROM totals
)
SELECT position FROM ranked WHERE id = ?`

type Repository interface {
	// ClassPosition returns the student's dense rank within their grade, or
	// 0 when the student does not exist.
	ClassPosition(ctx context.Context, studentID int64) (int, error)
	// ClassTotals returns per-student totals for a grade; an empty grade
	// selects students without one.
	ClassTotals(ctx context.Context, grade string) ([]Entry, error)
}

type repository struct {
	db      bun.IDB
	metrics *metrics.Metrics
}

func NewRepository(db bun.IDB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) ClassPosition(ctx context.Context, studentID int64) (int, error) {
	start := time.Now()
	var position int
	err := r.db.NewRaw(classPosition, studentID, studentID).Scan(ctx, &position)

	r.metrics.Database.RecordQuery(ctx, "select", "test_records", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return position, err
}

func (r *repository) ClassTotals(ctx context.Context, grade string) ([]Entry, error) {
	start := time.Now()
	var g interface{}
	if grade != "" {
		g = grade
	}

	entries := []Entry{}
	err := r.db.NewRaw(classTotals+" ORDER BY s.id", g).Scan(ctx, &entries)

	r.metrics.Database.RecordQuery(ctx, "select", "test_records", time.Since(start), err)

	return entries, err
}
