package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/jwalitptl/servicebook/internal/model"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrInvalidPayload:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRule:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrInvalidPayload
	ErrUnauthorized
	ErrRule
	ErrInternal
)

// NotFound reports a referenced entity that does not exist.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrNotFound, Message: message}
}

// InvalidPayload reports malformed or missing input.
func InvalidPayload(message string) *AppError {
	return &AppError{Code: ErrInvalidPayload, Message: message}
}

// Rule reports a business-rule violation such as a double confirmation.
func Rule(message string) *AppError {
	return &AppError{Code: ErrRule, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// CodeOf returns the code carried by err, or ErrInternal when err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ToMessage converts err into the result envelope returned to callers.
func ToMessage(err error) model.Message {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return model.NewError("internal server error")
	}
	switch appErr.Code {
	case ErrNotFound:
		return model.NewNotFound(appErr.Message)
	case ErrInvalidPayload:
		return model.NewInvalidPayload(appErr.Message)
	default:
		return model.NewError(appErr.Message)
	}
}

// Outcome labels err for metrics and logs.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch CodeOf(err) {
	case ErrNotFound:
		return "not_found"
	case ErrInvalidPayload:
		return "invalid_payload"
	case ErrRule:
		return "rule_violation"
	case ErrUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// StatusOf returns the HTTP status for err, 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
