package auth

import (
	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
)

// Principal is the authenticated actor attached to a request after the auth
// middleware runs. Both fields are always populated.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p.UserID == uuid.Nil
}
