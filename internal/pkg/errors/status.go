package xerrors

import (
	"errors"
	"net/http"
)

var httpStatusByCode = map[Code]int{
	CodeRestaurantNotFound:     http.StatusNotFound,
	CodeSubscriptionNotFound:   http.StatusNotFound,
	CodeInvalidParameters:      http.StatusBadRequest,
	CodeInvalidStateTransition: http.StatusConflict,
	CodeAlreadySuspended:       http.StatusConflict,
	CodeNotSuspended:           http.StatusConflict,
	CodePaymentRequired:        http.StatusPaymentRequired,
	CodeGracePeriodExpired:     http.StatusPaymentRequired,
	CodeSystemError:            http.StatusInternalServerError,
}

var httpStatusBySentinel = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrConflict, http.StatusConflict},
	{ErrRateLimited, http.StatusTooManyRequests},
}

// HTTPStatus resolves the transport status for err. Uncoded errors are internal.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if status, ok := httpStatusByCode[e.Code]; ok {
			return status
		}
		return http.StatusInternalServerError
	}
	for _, s := range httpStatusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
