package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewForbidden("insufficient role", nil), "FORBIDDEN", http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("guard: %w", NewUnauthorized("login required", nil)), "UNAUTHORIZED", http.StatusUnauthorized},
		{"fiber error", fiber.NewError(http.StatusNotFound, "Cannot GET /nope"), "NOT_FOUND", http.StatusNotFound},
		{"deadline", fmt.Errorf("upstream: %w", context.DeadlineExceeded), "TIMEOUT", http.StatusGatewayTimeout},
		{"upstream", NewUpstreamError(cause), "UPSTREAM_UNAVAILABLE", http.StatusBadGateway},
		{"plain error", cause, "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantStatus, de.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewInternalError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error: boom", err.Error())
	assert.Equal(t, "bad credentials", NewAuthFailed("bad credentials").Error())
}
