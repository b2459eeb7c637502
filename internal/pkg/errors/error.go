package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrRateLimited  = errors.New("too many requests")
)

// Code is a stable, client-visible error kind.
type Code string

const (
	CodeRestaurantNotFound     Code = "RESTAURANT_NOT_FOUND"
	CodeSubscriptionNotFound   Code = "SUBSCRIPTION_NOT_FOUND"
	CodeInvalidParameters      Code = "INVALID_PARAMETERS"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeAlreadySuspended       Code = "ALREADY_SUSPENDED"
	CodeNotSuspended           Code = "NOT_SUSPENDED"
	CodePaymentRequired        Code = "PAYMENT_REQUIRED"
	CodeGracePeriodExpired     Code = "GRACE_PERIOD_EXPIRED"
	CodeSystemError            Code = "SYSTEM_ERROR"
)

// Error is a coded application error, optionally scoped to a restaurant.
type Error struct {
	Code         Code
	Message      string
	RestaurantID int64
	Err          error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RestaurantID != 0 {
		msg = fmt.Sprintf("%s (restaurant %d)", msg, e.RestaurantID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets coded errors match the generic sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeRestaurantNotFound || e.Code == CodeSubscriptionNotFound
	case ErrInvalidInput:
		return e.Code == CodeInvalidParameters
	case ErrConflict:
		return e.Code == CodeInvalidStateTransition || e.Code == CodeAlreadySuspended || e.Code == CodeNotSuspended
	case ErrInternal:
		return e.Code == CodeSystemError
	}
	return false
}

// New builds a coded error.
func New(code Code, restaurantID int64, message string) *Error {
	return &Error{Code: code, Message: message, RestaurantID: restaurantID}
}

// System wraps an unexpected failure as SYSTEM_ERROR.
func System(restaurantID int64, message string, err error) *Error {
	return &Error{Code: CodeSystemError, Message: message, RestaurantID: restaurantID, Err: err}
}

// CodeOf extracts the code of err, or SYSTEM_ERROR for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeSystemError
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
