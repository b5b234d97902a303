package fee

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusLate    = "late"
)

// FeePayment is one student's fee for one calendar month. MonthPaidFor is
// always stored as the first day of that month.
type FeePayment struct {
	bun.BaseModel `bun:"table:fee_payments,alias:fp"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	StudentID    int64     `bun:"student_id,notnull" json:"student_id"`
	Amount       float64   `bun:"amount,type:numeric(10,2),notnull" json:"amount"`
	MonthPaidFor time.Time `bun:"month_paid_for,type:date,notnull" json:"month_paid_for"`
	DatePaid     time.Time `bun:"date_paid,type:date,notnull" json:"date_paid"`
	Status       string    `bun:"status,notnull" json:"status"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	// Created is filled from RETURNING on upsert.
	Created bool `bun:"created,scanonly" json:"-"`
}

var (
	_ bun.BeforeCreateTableHook = (*FeePayment)(nil)
	_ bun.AfterCreateTableHook  = (*FeePayment)(nil)
)

func (*FeePayment) BeforeCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	query.ForeignKey(`("student_id") REFERENCES "students" ("id") ON DELETE CASCADE`)
	return nil
}

func (*FeePayment) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*FeePayment)(nil)).
		Index("fee_payments_student_month_key").
		Unique().
		Column("student_id", "month_paid_for").
		IfNotExists().
		Exec(ctx)
	return err
}

// Input is both the direct payment payload and the optional initial fee of
// an enrollment descriptor. MonthPaidFor accepts YYYY-MM-DD or YYYY-MM.
type Input struct {
	StudentID    int64   `json:"student" validate:"required,gt=0"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	MonthPaidFor string  `json:"month_paid_for" validate:"required"`
	Status       string  `json:"status" validate:"omitempty,oneof=pending paid late"`
}

type ListFilter struct {
	StudentID int64
	Status    string
	Month     string
	Ordering  string
	Limit     int
	Offset    int
}

var orderings = map[string]string{
	"date_paid":       "fp.date_paid ASC",
	"-date_paid":      "fp.date_paid DESC",
	"amount":          "fp.amount ASC",
	"-amount":         "fp.amount DESC",
	"month_paid_for":  "fp.month_paid_for ASC",
	"-month_paid_for": "fp.month_paid_for DESC",
}

// RecordResult is returned by Record.
type RecordResult struct {
	Message string      `json:"message"`
	Created bool        `json:"-"`
	Payment *FeePayment `json:"data"`
}
