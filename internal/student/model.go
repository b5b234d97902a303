package student

import (
	"context"
	"slices"
	"time"

	"school-service/internal/guardian"

	"github.com/uptrace/bun"
)

// Grades are the class labels a student can be enrolled in. "11" and "12"
// are the 1st and 2nd intermediate years.
var Grades = []string{"Nursery", "Prep", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

func ValidGrade(grade string) bool {
	return slices.Contains(Grades, grade)
}

const NoPaymentStatus = "no_payment"

type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID         int64              `bun:"id,pk,autoincrement" json:"id"`
	Name       string             `bun:"name" json:"name"`
	Photo      string             `bun:"photo" json:"photo,omitempty"`
	Age        *int               `bun:"age" json:"age"`
	Grade      string             `bun:"grade,nullzero" json:"grade"`
	GuardianID *int64             `bun:"guardian_id" json:"guardian_id"`
	Guardian   *guardian.Guardian `bun:"rel:belongs-to,join:guardian_id=id" json:"guardian,omitempty"`
	DateJoined *time.Time         `bun:"date_joined,type:date" json:"date_joined"`
	IsActive   bool               `bun:"is_active,notnull" json:"is_active"`

	// Derived fields, written only by the aggregate maintainer.
	TotalTestsConducted int     `bun:"total_tests_conducted,notnull,default:0" json:"total_tests_conducted"`
	OverallAttendance   float64 `bun:"overall_attendance,notnull,default:0" json:"overall_attendance"`
	LatestFeeStatus     string  `bun:"latest_fee_status,nullzero,notnull,default:'no_payment'" json:"latest_fee_status"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

var (
	_ bun.BeforeCreateTableHook = (*Student)(nil)
	_ bun.AfterCreateTableHook  = (*Student)(nil)
)

func (*Student) BeforeCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	query.ForeignKey(`("guardian_id") REFERENCES "guardians" ("id") ON DELETE CASCADE`)
	return nil
}

func (*Student) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*Student)(nil)).
		Index("students_grade_idx").
		Column("grade").
		IfNotExists().
		Exec(ctx)
	return err
}

type CreateInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	Photo      string `json:"photo" validate:"omitempty,url"`
	Age        *int   `json:"age" validate:"omitempty,min=1,max=40"`
	Grade      string `json:"grade" validate:"omitempty,oneof=Nursery Prep 1 2 3 4 5 6 7 8 9 10 11 12"`
	GuardianID int64  `json:"guardian_id" validate:"required,gt=0"`
	DateJoined string `json:"date_joined" validate:"omitempty,datetime=2006-01-02"`
	IsActive   *bool  `json:"is_active"`
}

// PatchInput carries only the fields the caller wants to change.
type PatchInput struct {
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Photo      *string `json:"photo" validate:"omitempty,url"`
	Age        *int    `json:"age" validate:"omitempty,min=1,max=40"`
	Grade      *string `json:"grade" validate:"omitempty,oneof=Nursery Prep 1 2 3 4 5 6 7 8 9 10 11 12"`
	GuardianID *int64  `json:"guardian_id" validate:"omitempty,gt=0"`
	DateJoined *string `json:"date_joined" validate:"omitempty,datetime=2006-01-02"`
	IsActive   *bool   `json:"is_active"`
}

type ListFilter struct {
	Grade    string
	IsActive *bool
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

// orderings maps the accepted ?ordering= values to SQL.
var orderings = map[string]string{
	"name":         "s.name ASC",
	"-name":        "s.name DESC",
	"grade":        "s.grade ASC",
	"-grade":       "s.grade DESC",
	"date_joined":  "s.date_joined ASC",
	"-date_joined": "s.date_joined DESC",
}
