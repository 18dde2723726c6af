package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrConflict             = errors.New("resource conflict")
	ErrInternal             = errors.New("internal server error")
	ErrValidation           = errors.New("validation error")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrTerminalState        = errors.New("lot is in a terminal state")
	ErrInsufficientQuantity = errors.New("insufficient lot quantity")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOverAllocation       = errors.New("allocations exceed source quantity")
	ErrConcurrency          = errors.New("concurrent modification")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Ledger error constructors

// InvalidStateTransition reports an attempt to move a lot along an edge that
// is not in the transition table. The attempted edge is named in the message.
func InvalidStateTransition(from, to string) *AppError {
	return &AppError{
		Err:        ErrInvalidState,
		Code:       "INVALID_STATE_TRANSITION",
		Message:    fmt.Sprintf("status transition %s -> %s is not allowed", from, to),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"from": from, "to": to},
	}
}

// TerminalState reports a quantity-changing operation against a lot whose
// status no longer accepts mutations.
func TerminalState(status string) *AppError {
	return &AppError{
		Err:        ErrTerminalState,
		Code:       "TERMINAL_STATE",
		Message:    fmt.Sprintf("lot is %s and no longer accepts quantity changes", status),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"status": status},
	}
}

// InsufficientQuantity reports a single-lot decrement that would drive
// current_quantity negative.
func InsufficientQuantity(need, have string) *AppError {
	return &AppError{
		Err:        ErrInsufficientQuantity,
		Code:       "INSUFFICIENT_QUANTITY",
		Message:    fmt.Sprintf("insufficient lot quantity: need %s, have %s", need, have),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"need": need, "have": have},
	}
}

// InsufficientStock reports a cross-lot decrement that exceeds the total
// available quantity for the product.
func InsufficientStock(need, have string) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("insufficient stock: need %s, have %s", need, have),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"need": need, "have": have},
	}
}

// OverAllocation reports split allocations whose sum exceeds the source lot's
// current quantity.
func OverAllocation(requested, available string) *AppError {
	return &AppError{
		Err:        ErrOverAllocation,
		Code:       "OVER_ALLOCATION",
		Message:    fmt.Sprintf("split allocations total %s but only %s is available", requested, available),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"requested": requested, "available": available},
	}
}

// Concurrency reports a lock or version conflict. The operation may be
// retried by the caller against fresh state; the core never retries itself.
func Concurrency(message string) *AppError {
	return &AppError{
		Err:        ErrConcurrency,
		Code:       "CONCURRENCY_CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
		Retryable:  true,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
