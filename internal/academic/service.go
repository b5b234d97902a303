package academic

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
)

var ErrTestRecordNotFound = apperror.NotFound("academic", "test record not found")

// TestCounter moves a student's total_tests_conducted by delta inside the
// caller's transaction.
type TestCounter interface {
	RecomputeTestCount(ctx context.Context, idb bun.IDB, studentID int64, delta int) error
}

type Service interface {
	CreateRecords(ctx context.Context, studentID int64, in BulkInput) ([]TestRecord, error)
	ListRecords(ctx context.Context, studentID int64, limit, offset int) ([]TestRecord, int, error)
	UpdateRecord(ctx context.Context, id int64, in RecordInput) (*TestRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
}

type service struct {
	db       *bun.DB
	repo     Repository
	counter  TestCounter
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(db *bun.DB, repo Repository, counter TestCounter, logger *slog.Logger) Service {
	return &service{
		db:       db,
		repo:     repo,
		counter:  counter,
		validate: validator.New(),
		logger:   logger,
	}
}

func toRecord(studentID int64, in RecordInput) (TestRecord, error) {
	d, err := calendar.ParseDate(in.TestDate)
	if err != nil {
		return TestRecord{}, err
	}
	return TestRecord{
		StudentID:     studentID,
		TestDate:      d,
		TestName:      in.TestName,
		Subject:       in.Subject,
		TotalMarks:    in.TotalMarks,
		ObtainedMarks: in.ObtainedMarks,
		Remarks:       in.Remarks,
	}, nil
}

// CreateRecords inserts every record and bumps the student's test counter by
// the number inserted, all in one transaction.
func (s *service) CreateRecords(ctx context.Context, studentID int64, in BulkInput) ([]TestRecord, error) {
	if studentID <= 0 {
		return nil, apperror.Validation("academic.CreateRecords", "invalid student id")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("academic.CreateRecords", err.Error())
	}

	records := make([]TestRecord, 0, len(in.Records))
	for _, ri := range in.Records {
		rec, err := toRecord(studentID, ri)
		if err != nil {
			return nil, apperror.Validation("academic.CreateRecords", err.Error())
		}
		records = append(records, rec)
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.CreateMany(ctx, tx, records); err != nil {
			return err
		}
		return s.counter.RecomputeTestCount(ctx, tx, studentID, len(records))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "test records created", "student_id", studentID, "count", len(records))
	return records, nil
}

func (s *service) ListRecords(ctx context.Context, studentID int64, limit, offset int) ([]TestRecord, int, error) {
	if studentID <= 0 {
		return nil, 0, apperror.Validation("academic.ListRecords", "invalid student id")
	}
	return s.repo.ListByStudent(ctx, studentID, limit, offset)
}

func (s *service) UpdateRecord(ctx context.Context, id int64, in RecordInput) (*TestRecord, error) {
	if id <= 0 {
		return nil, apperror.Validation("academic.UpdateRecord", "invalid test record id")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("academic.UpdateRecord", err.Error())
	}

	rec, err := toRecord(0, in)
	if err != nil {
		return nil, apperror.Validation("academic.UpdateRecord", err.Error())
	}
	rec.ID = id

	if err := s.repo.Update(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecord decrements the owner's counter and removes the row in one
// transaction. The row is locked first so concurrent deletes of the same
// record decrement only once.
func (s *service) DeleteRecord(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("academic.DeleteRecord", "invalid test record id")
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rec, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		err = s.counter.RecomputeTestCount(ctx, tx, rec.StudentID, -1)
		if err != nil && !errors.Is(err, apperror.ErrComputationSkip) {
			return err
		}

		return s.repo.Delete(ctx, tx, id)
	})
}
