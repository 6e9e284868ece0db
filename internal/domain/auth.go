package domain

// Role is the access level that governs menu and route visibility.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleSales Role = "sales"
)

// DefaultRole is assumed when a token carries no role claim.
const DefaultRole = RoleSales

// UserInfo is the identity derived from a token's claims.
type UserInfo struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
}

// HasAnyRole reports whether the user holds one of roles.
func (u UserInfo) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}
