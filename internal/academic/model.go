package academic

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type TestRecord struct {
	bun.BaseModel `bun:"table:test_records,alias:tr"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	StudentID     int64     `bun:"student_id,notnull" json:"student_id"`
	TestDate      time.Time `bun:"test_date,type:date,notnull" json:"test_date"`
	TestName      string    `bun:"test_name,notnull" json:"test_name"`
	Subject       string    `bun:"subject,notnull" json:"subject"`
	TotalMarks    float64   `bun:"total_marks,notnull" json:"total_marks"`
	ObtainedMarks float64   `bun:"obtained_marks,notnull" json:"obtained_marks"`
	Percentage    *float64  `bun:"percentage" json:"percentage"`
	Remarks       string    `bun:"remarks" json:"remarks"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

var (
	_ bun.BeforeAppendModelHook = (*TestRecord)(nil)
	_ bun.BeforeCreateTableHook = (*TestRecord)(nil)
	_ bun.AfterCreateTableHook  = (*TestRecord)(nil)
)

// Percentage returns obtained/total*100, or nil when total is zero.
func Percentage(obtained, total float64) *float64 {
	if total == 0 {
		return nil
	}
	p := obtained / total * 100
	return &p
}

// BeforeAppendModel keeps percentage in step with the marks on every write.
func (t *TestRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		t.Percentage = Percentage(t.ObtainedMarks, t.TotalMarks)
	}
	return nil
}

func (*TestRecord) BeforeCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	query.ForeignKey(`("student_id") REFERENCES "students" ("id") ON DELETE CASCADE`)
	return nil
}

func (*TestRecord) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*TestRecord)(nil)).
		Index("test_records_student_id_idx").
		Column("student_id").
		IfNotExists().
		Exec(ctx)
	return err
}

type RecordInput struct {
	TestDate      string  `json:"test_date" validate:"required,datetime=2006-01-02"`
	TestName      string  `json:"test_name" validate:"required,max=100"`
	Subject       string  `json:"subject" validate:"required,max=100"`
	TotalMarks    float64 `json:"total_marks" validate:"gte=0"`
	ObtainedMarks float64 `json:"obtained_marks" validate:"gte=0"`
	Remarks       string  `json:"remarks" validate:"max=500"`
}

type BulkInput struct {
	Records []RecordInput `json:"records" validate:"required,min=1,dive"`
}
