package expense

import (
	"context"

	"school-service/internal/apperror"
	"school-service/internal/calendar"

	"github.com/go-playground/validator/v10"
)

var ErrExpenseNotFound = apperror.NotFound("expense", "expense not found")

type Service interface {
	CreateExpense(ctx context.Context, in Input) (*Expense, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	GetExpense(ctx context.Context, id int64) (*Expense, error)
	UpdateExpense(ctx context.Context, id int64, in Input) (*Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
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

func (s *service) build(op string, in Input) (*Expense, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation(op, err.Error())
	}

	e := &Expense{
		Title:       in.Title,
		Category:    in.Category,
		Amount:      in.Amount,
		Status:      in.Status,
		ExpenseDate: calendar.Today(),
	}
	if e.Status == "" {
		e.Status = "pending"
	}
	if in.ExpenseDate != "" {
		d, err := calendar.ParseDate(in.ExpenseDate)
		if err != nil {
			return nil, apperror.Validation(op, err.Error())
		}
		e.ExpenseDate = d
	}
	return e, nil
}

func (s *service) CreateExpense(ctx context.Context, in Input) (*Expense, error) {
	e, err := s.build("expense.Create", in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	if id <= 0 {
		return nil, apperror.Validation("expense.Get", "invalid expense id")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateExpense(ctx context.Context, id int64, in Input) (*Expense, error) {
	if id <= 0 {
		return nil, apperror.Validation("expense.Update", "invalid expense id")
	}
	e, err := s.build("expense.Update", in)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) DeleteExpense(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("expense.Delete", "invalid expense id")
	}
	return s.repo.Delete(ctx, id)
}
