package guardian

import (
	"context"

	"school-service/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var ErrGuardianNotFound = apperror.NotFound("guardian", "guardian not found")

type Service interface {
	CreateGuardian(ctx context.Context, in Input) (*Guardian, error)
	ListGuardians(ctx context.Context, filter ListFilter) ([]Guardian, int, error)
	GetGuardian(ctx context.Context, id int64) (*Detail, error)
	UpdateGuardian(ctx context.Context, id int64, in Input) (*Guardian, error)
	DeleteGuardian(ctx context.Context, id int64) error
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

func (s *service) CreateGuardian(ctx context.Context, in Input) (*Guardian, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("guardian.Create", err.Error())
	}
	g := in.toModel()
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *service) ListGuardians(ctx context.Context, filter ListFilter) ([]Guardian, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) GetGuardian(ctx context.Context, id int64) (*Detail, error) {
	if id <= 0 {
		return nil, apperror.Validation("guardian.Get", "invalid guardian id")
	}
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Guardian: *g, Students: students}, nil
}

func (s *service) UpdateGuardian(ctx context.Context, id int64, in Input) (*Guardian, error) {
	if id <= 0 {
		return nil, apperror.Validation("guardian.Update", "invalid guardian id")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("guardian.Update", err.Error())
	}
	g := in.toModel()
	g.ID = id
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *service) DeleteGuardian(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("guardian.Delete", "invalid guardian id")
	}
	return s.repo.Delete(ctx, id)
}
