package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NotFound("Listing", nil), CodeNotFound, http.StatusNotFound},
		{BadRequest("bad", nil), CodeBadRequest, http.StatusBadRequest},
		{Unauthorized("no", nil), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("no", nil), CodeForbidden, http.StatusForbidden},
		{Conflict("dup", nil), CodeConflict, http.StatusConflict},
		{Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{Upstream("geo", nil), CodeUpstream, http.StatusBadGateway},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.Status)
	}

	assert.Equal(t, "Listing not found", NotFound("Listing", nil).Message)
}

func TestIsUnwrapsWrappedErrors(t *testing.T) {
	cause := fmt.Errorf("rpc error")
	err := fmt.Errorf("loading chat: %w", NotFound("Conversation", cause))

	assert.True(t, IsNotFound(err))
	assert.False(t, Is(err, CodeForbidden))
	assert.ErrorIs(t, err, cause)
}

func TestTooManyRequestsCarriesRetryAfter(t *testing.T) {
	err := TooManyRequests("slow down", 6*time.Second)
	assert.Equal(t, 6*time.Second, err.RetryAfter)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
}
