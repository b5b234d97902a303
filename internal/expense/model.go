package expense

import (
	"time"

	"github.com/uptrace/bun"
)

// Categories is the fixed set every finance summary reports on.
var Categories = []string{"salary", "rent", "utilities", "other"}

type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:e"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Category    string    `bun:"category,notnull" json:"category"`
	Amount      float64   `bun:"amount,type:numeric(10,2),notnull" json:"amount"`
	ExpenseDate time.Time `bun:"expense_date,type:date,notnull" json:"expense_date"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type Input struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,oneof=salary rent utilities other"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	ExpenseDate string  `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending paid"`
}

type ListFilter struct {
	Category string
	Status   string
	Month    string
	Limit    int
	Offset   int
}
