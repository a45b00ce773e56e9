package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrAuthExchange = errors.New("auth exchange failed")
	ErrStorage      = errors.New("storage failure")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field or query parameter causing the error
	Cause   error  // Optional: underlying failure, logged but never sent to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// apperror.ErrAuthExchange as well as e.g. context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func BadRequest(field, message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
		Field:   field,
	}
}

// AuthExchangeFailed reports a failed step of the OAuth code exchange.
// step is a short label such as "token exchange" or "profile fetch".
func AuthExchangeFailed(step string, cause error) *AppError {
	return &AppError{
		Err:     ErrAuthExchange,
		Message: "auth exchange: " + step,
		Cause:   cause,
	}
}

// StorageFailed wraps a persistence failure. HTTP handlers map this to 500.
func StorageFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: "storage: " + op,
		Cause:   cause,
	}
}
