package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_CodedErrors(t *testing.T) {
	cases := map[Code]int{
		CodeRestaurantNotFound:     http.StatusNotFound,
		CodeSubscriptionNotFound:   http.StatusNotFound,
		CodeInvalidParameters:      http.StatusBadRequest,
		CodeInvalidStateTransition: http.StatusConflict,
		CodeAlreadySuspended:       http.StatusConflict,
		CodeNotSuspended:           http.StatusConflict,
		CodeSystemError:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		err := fmt.Errorf("wrapped: %w", New(code, 7, "boom"))
		assert.Equal(t, want, HTTPStatus(err), string(code))
	}
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrRateLimited))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("disk on fire")))
}

func TestCodedErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, New(CodeSubscriptionNotFound, 1, "missing"), ErrNotFound)
	assert.ErrorIs(t, New(CodeInvalidStateTransition, 1, "trial already used"), ErrConflict)
	assert.NotErrorIs(t, New(CodeInvalidParameters, 1, "bad days"), ErrNotFound)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidParameters, CodeOf(fmt.Errorf("ctx: %w", New(CodeInvalidParameters, 0, "days"))))
	assert.Equal(t, CodeSystemError, CodeOf(errors.New("plain")))

	cause := errors.New("connection refused")
	err := System(3, "failed to load subscription", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "restaurant 3")
}
