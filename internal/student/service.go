package student

import (
	"context"

	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/go-playground/validator/v10"
)

var ErrStudentNotFound = apperror.NotFound("student", "student not found")

type Service interface {
	CreateStudent(ctx context.Context, in CreateInput) (*Student, error)
	ListStudents(ctx context.Context, filter ListFilter) ([]Student, int, error)
	GetStudentByID(ctx context.Context, id int64) (*Student, error)
	UpdateStudent(ctx context.Context, id int64, in PatchInput) (*Student, error)
	DeleteStudent(ctx context.Context, id int64) error
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
	}
}

func (s *service) CreateStudent(ctx context.Context, in CreateInput) (*Student, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("student.Create", err.Error())
	}

	student := &Student{
		Name:       in.Name,
		Photo:      in.Photo,
		Age:        in.Age,
		Grade:      in.Grade,
		GuardianID: &in.GuardianID,
		IsActive:   true,
	}
	if in.IsActive != nil {
		student.IsActive = *in.IsActive
	}
	if in.DateJoined != "" {
		d, err := calendar.ParseDate(in.DateJoined)
		if err != nil {
			return nil, apperror.Validation("student.Create", err.Error())
		}
		student.DateJoined = &d
	} else {
		today := calendar.Today()
		student.DateJoined = &today
	}

	if err := s.repo.Create(ctx, nil, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *service) ListStudents(ctx context.Context, filter ListFilter) ([]Student, int, error) {
	if filter.Grade != "" && !ValidGrade(filter.Grade) {
		return nil, 0, apperror.Validationf("student.List", "unknown grade %q", filter.Grade)
	}
	return s.repo.List(ctx, filter)
}

func (s *service) GetStudentByID(ctx context.Context, id int64) (*Student, error) {
	if id <= 0 {
		return nil, apperror.Validation("student.Get", "invalid student id")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStudent(ctx context.Context, id int64, in PatchInput) (*Student, error) {
	if id <= 0 {
		return nil, apperror.Validation("student.Update", "invalid student id")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("student.Update", err.Error())
	}

	student := &Student{ID: id}
	var columns []string

	if in.Name != nil {
		student.Name = *in.Name
		columns = append(columns, "name")
	}
	if in.Photo != nil {
		student.Photo = *in.Photo
		columns = append(columns, "photo")
	}
	if in.Age != nil {
		student.Age = in.Age
		columns = append(columns, "age")
	}
	if in.Grade != nil {
		student.Grade = *in.Grade
		columns = append(columns, "grade")
	}
	if in.GuardianID != nil {
		student.GuardianID = in.GuardianID
		columns = append(columns, "guardian_id")
	}
	if in.DateJoined != nil {
		d, err := calendar.ParseDate(*in.DateJoined)
		if err != nil {
			return nil, apperror.Validation("student.Update", err.Error())
		}
		student.DateJoined = &d
		columns = append(columns, "date_joined")
	}
	if in.IsActive != nil {
		student.IsActive = *in.IsActive
		columns = append(columns, "is_active")
	}

	if len(columns) > 0 {
		if err := s.repo.Update(ctx, student, columns...); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteStudent(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("student.Delete", "invalid student id")
	}
	return s.repo.Delete(ctx, id)
}
