// Package apperror defines the error taxonomy shared by every public
// operation of the service. Each error carries a stable Kind that callers
// match with errors.Is against the Err* sentinels.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"school-service/common/httputil"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindComputationSkip Kind = "computation_skip"
	KindInternal        Kind = "internal"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrComputationSkip = errors.New("computation skipped")
	ErrInternal        = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindValidation:      ErrValidation,
	KindNotFound:        ErrNotFound,
	KindConflict:        ErrConflict,
	KindComputationSkip: ErrComputationSkip,
	KindInternal:        ErrInternal,
}

type Error struct {
	Kind    Kind
	Op      string // e.g. "enrollment.Enroll"
	Message string // safe to show to API callers
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func Validationf(op, format string, args ...any) *Error {
	return Validation(op, fmt.Sprintf(format, args...))
}

func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func Conflict(op, message string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message, Err: err}
}

func Skip(op, message string) *Error {
	return &Error{Kind: KindComputationSkip, Op: op, Message: message}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal server error", Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal for anything that was never classified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing message for err. Unclassified and
// internal errors never leak their text.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error body with its kind and matching status.
func Respond(w http.ResponseWriter, err error) {
	httputil.RespondWithErrorKind(w, HTTPStatus(err), string(KindOf(err)), PublicMessage(err))
}
