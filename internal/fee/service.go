package fee

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
)

var ErrPaymentNotFound = apperror.NotFound("fee", "payment not found")

// StatusSyncer refreshes students' latest_fee_status after payments change.
type StatusSyncer interface {
	SyncFeeStatus(ctx context.Context, studentIDs ...int64)
}

type Service interface {
	Record(ctx context.Context, in Input) (*RecordResult, error)
	ListPayments(ctx context.Context, filter ListFilter) ([]FeePayment, int, error)
	DeletePayment(ctx context.Context, id int64) error
}

type service struct {
	db       *bun.DB
	repo     Repository
	syncer   StatusSyncer
	validate *validator.Validate
}

func NewService(db *bun.DB, repo Repository, syncer StatusSyncer) Service {
	return &service{
		db:       db,
		repo:     repo,
		syncer:   syncer,
		validate: validator.New(),
	}
}

// Build validates in and turns it into a payment row dated today.
func Build(validate *validator.Validate, in Input) (*FeePayment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperror.Validation("fee.Build", err.Error())
	}

	month, err := parseMonthPaidFor(in.MonthPaidFor)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}

	return &FeePayment{
		StudentID:    in.StudentID,
		Amount:       in.Amount,
		MonthPaidFor: month,
		DatePaid:     calendar.Today(),
		Status:       status,
	}, nil
}

func parseMonthPaidFor(value string) (time.Time, error) {
	if d, err := calendar.ParseDate(value); err == nil {
		return calendar.FirstOfMonth(d), nil
	}
	year, month, err := calendar.ParseMonth(value)
	if err != nil {
		return time.Time{}, apperror.Validation("fee.Build", "month_paid_for must be YYYY-MM-DD or YYYY-MM")
	}
	first, _ := calendar.MonthRange(year, month)
	return first, nil
}

func (s *service) Record(ctx context.Context, in Input) (*RecordResult, error) {
	payment, err := Build(s.validate, in)
	if err != nil {
		return nil, err
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Upsert(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.syncer.SyncFeeStatus(ctx, payment.StudentID)

	action := "updated"
	if payment.Created {
		action = "created"
	}
	return &RecordResult{
		Message: fmt.Sprintf("Payment %s successfully for %s", action, payment.MonthPaidFor.Format("January 2006")),
		Created: payment.Created,
		Payment: payment,
	}, nil
}

func (s *service) ListPayments(ctx context.Context, filter ListFilter) ([]FeePayment, int, error) {
	if filter.Status != "" && filter.Status != StatusPending && filter.Status != StatusPaid && filter.Status != StatusLate {
		return nil, 0, apperror.Validationf("fee.List", "unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

func (s *service) DeletePayment(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("fee.Delete", "invalid payment id")
	}

	deleted, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}

	s.syncer.SyncFeeStatus(ctx, deleted.StudentID)
	return nil
}
