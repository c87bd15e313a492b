// Package apperr defines the error taxonomy shared by every application
// service. Domain packages export sentinel *Error values so that callers can
// match with errors.Is while the service boundary extracts the code for the
// uniform result shape.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeBusiness                Code = "BUSINESS_ERROR"
	CodeInsufficientStock       Code = "INSUFFICIENT_STOCK"
	CodeCurrencyMismatch        Code = "CURRENCY_MISMATCH"
	CodeNotFound                Code = "NOT_FOUND"
	CodeConflict                Code = "CONFLICT"
	CodeConcurrentModification  Code = "CONCURRENT_MODIFICATION"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeAccountLocked           Code = "ACCOUNT_LOCKED"
	CodeDuplicateEmail          Code = "DUPLICATE_EMAIL"
	CodeDuplicateUsername       Code = "DUPLICATE_USERNAME"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeOrderCannotCancel       Code = "ORDER_CANNOT_CANCEL"
	CodePaymentFailed           Code = "PAYMENT_FAILED"
	CodeCompensationFailure     Code = "COMPENSATION_FAILURE"
	CodeInternal                Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so that wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the taxonomy code from err, or CodeInternal when err is not
// an application error (infrastructure failures, programming mistakes).
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the user-safe message for err. Unexpected errors collapse
// to a generic message so that internals never leak past the service API.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
