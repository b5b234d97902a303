package attendance

import (
	"context"

	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/go-playground/validator/v10"
)

var ErrRecordNotFound = apperror.NotFound("attendance", "attendance record not found")

// Maintainer brings the students' overall_attendance back in line with their
// attendance rows. It reports failures itself and never returns them.
type Maintainer interface {
	SyncAttendance(ctx context.Context, studentIDs ...int64)
}

type Service interface {
	Mark(ctx context.Context, in MarkInput) ([]Record, error)
	UpdateStatus(ctx context.Context, id int64, in StatusInput) (*Record, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
}

type service struct {
	repo       Repository
	maintainer Maintainer
	validate   *validator.Validate
}

func NewService(repo Repository, maintainer Maintainer) Service {
	return &service{
		repo:       repo,
		maintainer: maintainer,
		validate:   validator.New(),
	}
}

// Mark records statuses for one date, defaulting to today. When a student
// appears more than once the last entry wins.
func (s *service) Mark(ctx context.Context, in MarkInput) ([]Record, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("attendance.Mark", err.Error())
	}

	date := calendar.Today()
	if in.Date != "" {
		d, err := calendar.ParseDate(in.Date)
		if err != nil {
			return nil, apperror.Validation("attendance.Mark", err.Error())
		}
		date = d
	}

	position := make(map[int64]int, len(in.Records))
	records := make([]Record, 0, len(in.Records))
	for _, e := range in.Records {
		if i, seen := position[e.StudentID]; seen {
			records[i].Status = e.Status
			continue
		}
		position[e.StudentID] = len(records)
		records = append(records, Record{StudentID: e.StudentID, Date: date, Status: e.Status})
	}

	if err := s.repo.Upsert(ctx, records); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.StudentID)
	}
	s.maintainer.SyncAttendance(ctx, ids...)

	return records, nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, in StatusInput) (*Record, error) {
	if id <= 0 {
		return nil, apperror.Validation("attendance.UpdateStatus", "invalid attendance id")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("attendance.UpdateStatus", err.Error())
	}

	rec, err := s.repo.UpdateStatus(ctx, id, in.Status)
	if err != nil {
		return nil, err
	}

	s.maintainer.SyncAttendance(ctx, rec.StudentID)
	return rec, nil
}

// Delete removes the row and then recomputes the owner's rate from the rows
// that remain.
func (s *service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("attendance.Delete", "invalid attendance id")
	}

	rec, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.maintainer.SyncAttendance(ctx, rec.StudentID)
	return nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	if filter.StudentID <= 0 {
		return nil, 0, apperror.Validation("attendance.List", "invalid student id")
	}
	return s.repo.List(ctx, filter)
}
