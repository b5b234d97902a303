package apperror_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"school-service/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", apperror.NotFound("student.Get", "student not found"))

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.False(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, http.StatusNotFound, apperror.HTTPStatus(err))
	assert.Equal(t, "student not found", apperror.PublicMessage(err))
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	raw := errors.New("pq: relation \"students\" does not exist")

	assert.Equal(t, apperror.KindInternal, apperror.KindOf(raw))
	assert.Equal(t, "internal server error", apperror.PublicMessage(raw))
	assert.Equal(t, http.StatusInternalServerError, apperror.HTTPStatus(raw))

	wrapped := apperror.Internal("fee.Record", raw)
	assert.Equal(t, "internal server error", apperror.PublicMessage(wrapped))
	assert.ErrorIs(t, wrapped, raw)
}

func TestConflictKeepsCause(t *testing.T) {
	err := apperror.Conflict("guardian.Create", "phone number already in use", sql.ErrTxDone)

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Equal(t, http.StatusConflict, apperror.HTTPStatus(err))
}

func TestValidationf(t *testing.T) {
	err := apperror.Validationf("reporting.MonthlyFinance", "month must be between 1 and 12, got %d", 13)

	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatus(err))
	assert.Equal(t, "month must be between 1 and 12, got 13", apperror.PublicMessage(err))
}
