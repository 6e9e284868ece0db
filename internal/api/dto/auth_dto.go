package dto

import "github.com/spec-kit/merchant-console/internal/domain"

// LoginRequest payload for console login. Remember keeps the session cookie past the
// browser session.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// RegisterRequest payload for account registration. It is forwarded to the upstream as is.
type RegisterRequest struct {
	Username   string      `json:"username" validate:"required"`
	Password   string      `json:"password" validate:"required"`
	Name       string      `json:"name" validate:"required"`
	Email      string      `json:"email" validate:"required,email"`
	Phone      string      `json:"phone,omitempty" validate:"omitempty,cnmobile"`
	Role       domain.Role `json:"role" validate:"omitempty,oneof=admin sales"`
	Department string      `json:"department,omitempty"`
}

// Normalize fills defaults the registration form would have preselected.
func (r *RegisterRequest) Normalize() {
	if r.Role == "" {
		r.Role = domain.DefaultRole
	}
}

// SessionResponse describes the logged-in browser session.
type SessionResponse struct {
	User   domain.UserInfo  `json:"user"`
	Cached *domain.UserInfo `json:"cached,omitempty"`
}
