// Package schema lists the persisted models in creation order.
package schema

import (
	"context"

	"school-service/internal/academic"
	"school-service/internal/attendance"
	"school-service/internal/db"
	"school-service/internal/expense"
	"school-service/internal/fee"
	"school-service/internal/guardian"
	"school-service/internal/student"

	"github.com/uptrace/bun"
)

// Models returns every table model with referenced tables first.
func Models() []interface{} {
	return []interface{}{
		(*guardian.Guardian)(nil),
		(*student.Student)(nil),
		(*fee.FeePayment)(nil),
		(*expense.Expense)(nil),
		(*academic.TestRecord)(nil),
		(*attendance.Record)(nil),
	}
}

func Migrate(ctx context.Context, database *bun.DB) error {
	return db.RunMigrations(ctx, database, Models()...)
}
