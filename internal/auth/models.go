package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "clave/pkg/domain-errors"
)

// Role is the coarse permission tier carried in access tokens.
type Role string

const (
	// RoleAdministrator may mutate any evaluation at any age.
	RoleAdministrator Role = "administrator"
	// RoleEditorManager may mutate only its own evaluations, and only within
	// the 24-hour edit window.
	RoleEditorManager Role = "editor_manager"
	// RoleViewer reads history and may update action-item statuses on recent
	// evaluations, but never creates or mutates evaluations.
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleEditorManager || r == RoleViewer
}

// ParseRole validates an externally supplied role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

// User is the stored account record.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor is the authenticated identity attached to a request. It is all the
// mutation guard ever sees of a user.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the actor bypasses ownership and age restrictions.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdministrator }
