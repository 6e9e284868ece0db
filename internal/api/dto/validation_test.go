package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/merchant-console/internal/domain"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Username: "shop01",
		Password: "secret",
		Name:     "王小明",
		Email:    "shop01@example.com",
	}
}

func TestValidateRegisterRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"valid", func(*RegisterRequest) {}, ""},
		{"valid phone", func(r *RegisterRequest) { r.Phone = "13812345678" }, ""},
		{"missing username", func(r *RegisterRequest) { r.Username = "" }, "username"},
		{"bad email", func(r *RegisterRequest) { r.Email = "nope" }, "email"},
		{"short phone", func(r *RegisterRequest) { r.Phone = "1381234567" }, "phone"},
		{"phone wrong prefix", func(r *RegisterRequest) { r.Phone = "12812345678" }, "phone"},
		{"unknown role", func(r *RegisterRequest) { r.Role = "owner" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)
			err := Validate(req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, "VALIDATION_FAILED", de.Code)
			assert.Contains(t, de.Details, tt.field)
		})
	}
}

func TestValidateLoginRequest(t *testing.T) {
	err := Validate(LoginRequest{Username: "alice"})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, map[string]any{"password": "password is required"}, de.Details)

	assert.NoError(t, Validate(LoginRequest{Username: "alice", Password: "pw"}))
}

func TestRegisterNormalize(t *testing.T) {
	req := validRegistration()
	req.Normalize()
	assert.Equal(t, domain.RoleSales, req.Role)

	req.Role = domain.RoleAdmin
	req.Normalize()
	assert.Equal(t, domain.RoleAdmin, req.Role)
}

func TestMobileValidationIsRegistered(t *testing.T) {
	req := validRegistration()
	req.Phone = "not-a-phone"

	de := apperrors.ToDomainError(Validate(req))
	require.NotNil(t, de)
	assert.Equal(t, map[string]any{"phone": "phone must be a valid mobile number"}, de.Details)
}
