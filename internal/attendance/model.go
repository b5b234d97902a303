package attendance

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLeave   = "leave"
	StatusLate    = "late"
)

// Record is one student's attendance for one day.
type Record struct {
	bun.BaseModel `bun:"table:attendance_records,alias:ar"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	StudentID int64     `bun:"student_id,notnull" json:"student_id"`
	Date      time.Time `bun:"date,type:date,notnull" json:"date"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

var (
	_ bun.BeforeCreateTableHook = (*Record)(nil)
	_ bun.AfterCreateTableHook  = (*Record)(nil)
)

func (*Record) BeforeCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	query.ForeignKey(`("student_id") REFERENCES "students" ("id") ON DELETE CASCADE`)
	return nil
}

func (*Record) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*Record)(nil)).
		Index("attendance_records_student_date_key").
		Unique().
		Column("student_id", "date").
		IfNotExists().
		Exec(ctx)
	return err
}

type Entry struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,oneof=present absent leave late"`
}

// MarkInput records the status of many students for one date.
type MarkInput struct {
	Date    string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Records []Entry `json:"records" validate:"required,min=1,dive"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=present absent leave late"`
}

type ListFilter struct {
	StudentID int64
	Month     string
	Limit     int
	Offset    int
}
