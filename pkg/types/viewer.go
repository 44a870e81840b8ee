package types

import (
	"github.com/google/uuid"

	"github.com/caroduarte/lumina-backend/pkg/enums"
)

// Viewer is the request-scoped identity access decisions are made against.
// A zero Viewer is an anonymous visitor.
type Viewer struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}

// Authenticated reports whether the viewer is a signed-in user.
func (v Viewer) Authenticated() bool {
	return v.UserID != uuid.Nil
}

// IsAdmin reports whether the viewer holds the admin role.
func (v Viewer) IsAdmin() bool {
	return v.Authenticated() && v.Role == enums.UserRoleAdmin
}
