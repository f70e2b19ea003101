// Package errors provides standardized domain errors with codes for the library API.
//
// Usage:
//
//	// In the lending engine - return typed errors
//	if book.Stock <= 0 {
//	    return errors.OutOfStock("book is out of stock")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrOutOfStock) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeAlreadyBorrowed, errors.CodeBorrowLimitReached:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	// Not found.
	CodeNotFound     Code = "NOT_FOUND"
	CodeUserNotFound Code = "USER_NOT_FOUND"

	// Request validation.
	CodeMissingFields Code = "MISSING_FIELDS"
	CodeInvalidStock  Code = "INVALID_STOCK"
	CodeInvalidTotal  Code = "INVALID_TOTAL"
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeBadRequest    Code = "BAD_REQUEST"

	// Conflicts with existing state.
	CodeDuplicateIsbn    Code = "DUPLICATE_ISBN"
	CodeAlreadyBorrowed  Code = "ALREADY_BORROWED"
	CodeHasActiveBorrows Code = "HAS_ACTIVE_BORROWS"
	CodeConflict         Code = "CONFLICT"

	// Lending rules.
	CodeOutOfStock            Code = "OUT_OF_STOCK"
	CodeBorrowLimitReached    Code = "BORROW_LIMIT_REACHED"
	CodeNotBorrowed           Code = "NOT_BORROWED"
	CodeTotalBelowBorrowed    Code = "TOTAL_BELOW_BORROWED"
	CodeStockExceedsAvailable Code = "STOCK_EXCEEDS_AVAILABLE"

	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeMissingFields, CodeInvalidStock, CodeInvalidTotal, CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeDuplicateIsbn, CodeAlreadyBorrowed, CodeHasActiveBorrows, CodeConflict:
		return http.StatusConflict
	case CodeOutOfStock, CodeBorrowLimitReached, CodeNotBorrowed,
		CodeTotalBelowBorrowed, CodeStockExceedsAvailable:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// GetStatus returns the HTTP status code, satisfying huma.StatusError so
// handlers can return domain errors directly.
func (e *Error) GetStatus() int {
	return e.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "book not found"}
	ErrUserNotFound          = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrMissingFields         = &Error{Code: CodeMissingFields, Message: "missing required fields"}
	ErrInvalidStock          = &Error{Code: CodeInvalidStock, Message: "stock cannot be negative"}
	ErrInvalidTotal          = &Error{Code: CodeInvalidTotal, Message: "total copies cannot be negative"}
	ErrValidation            = &Error{Code: CodeValidation, Message: "validation error"}
	ErrBadRequest            = &Error{Code: CodeBadRequest, Message: "bad request"}
	ErrDuplicateIsbn         = &Error{Code: CodeDuplicateIsbn, Message: "a book with this ISBN already exists"}
	ErrAlreadyBorrowed       = &Error{Code: CodeAlreadyBorrowed, Message: "you have already borrowed this book"}
	ErrHasActiveBorrows      = &Error{Code: CodeHasActiveBorrows, Message: "cannot delete a book with active borrows"}
	ErrConflict              = &Error{Code: CodeConflict, Message: "conflict"}
	ErrOutOfStock            = &Error{Code: CodeOutOfStock, Message: "book is out of stock"}
	ErrBorrowLimitReached    = &Error{Code: CodeBorrowLimitReached, Message: "borrow limit reached"}
	ErrNotBorrowed           = &Error{Code: CodeNotBorrowed, Message: "book is not currently borrowed by this user"}
	ErrTotalBelowBorrowed    = &Error{Code: CodeTotalBelowBorrowed, Message: "total copies cannot be less than borrowed copies"}
	ErrStockExceedsAvailable = &Error{Code: CodeStockExceedsAvailable, Message: "stock exceeds available copies"}
	ErrUnauthorized          = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden             = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrRateLimited           = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrInternal              = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// UserNotFoundf creates a user not found error with formatted message.
func UserNotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeUserNotFound, Message: fmt.Sprintf(format, args...)}
}

// MissingFields creates a missing fields error listing the offending fields.
func MissingFields(fields ...string) *Error {
	return &Error{Code: CodeMissingFields, Message: ErrMissingFields.Message, Details: fields}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// BadRequest creates a bad request error.
func BadRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

// DuplicateIsbnf creates a duplicate isbn error with formatted message.
func DuplicateIsbnf(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateIsbn, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
