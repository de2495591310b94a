package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindQuota, "Daily limit reached", nil))

	assert.ErrorIs(t, err, ErrQuota)
	assert.NotErrorIs(t, err, ErrInput)
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(KindService, "Story service is unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Story service is unavailable: connection refused", err.Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, New(KindService, "x", nil).Retryable())
	assert.True(t, New(KindMalformedOutput, "x", nil).Retryable())
	assert.True(t, New(KindSafety, "x", nil).Retryable())
	assert.False(t, (&Error{Kind: KindSafety, Reason: "x", Final: true}).Retryable())
	assert.False(t, New(KindEducational, "x", nil).Retryable())
	assert.False(t, New(KindQuota, "x", nil).Retryable())
	assert.False(t, New(KindInput, "x", nil).Retryable())
}

func TestStatusAndReason(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Newf(KindQuota, "limit %d", 20))
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))
	assert.Equal(t, "limit 20", ReasonOf(err))

	plain := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.NotContains(t, ReasonOf(plain), "boom")
}
