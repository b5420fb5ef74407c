package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		code      string
		status    int
		retryable bool
	}{
		{
			name:   "validation passes through",
			err:    fmt.Errorf("wrapped: %w", Validation("empty_title", "title required")),
			kind:   KindValidation,
			code:   "empty_title",
			status: http.StatusBadRequest,
		},
		{
			name:   "no rows is not found",
			err:    fmt.Errorf("get item: %w", pgx.ErrNoRows),
			kind:   KindNotFound,
			code:   "not_found",
			status: http.StatusNotFound,
		},
		{
			name:      "timeout is retryable",
			err:       fmt.Errorf("update: %w", context.DeadlineExceeded),
			kind:      KindActionable,
			code:      "timeout",
			status:    http.StatusServiceUnavailable,
			retryable: true,
		},
		{
			name:      "url error is retryable",
			err:       &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")},
			kind:      KindActionable,
			code:      "network_error",
			status:    http.StatusServiceUnavailable,
			retryable: true,
		},
		{
			name:   "unknown error",
			err:    errors.New("boom"),
			kind:   KindActionable,
			code:   "internal_error",
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.HTTPStatus())
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.True(t, got.Notify())
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestRecoverable_DoesNotNotify(t *testing.T) {
	err := Recoverable("ai_fallback", "canned text used", errors.New("502"))
	assert.False(t, err.Notify())
	assert.Equal(t, http.StatusOK, err.HTTPStatus())
	assert.ErrorContains(t, err, "502")
}
