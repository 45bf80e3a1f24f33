package auth

import (
	"context"

	"github.com/google/uuid"

	dErrors "clave/pkg/domain-errors"
)

// Store-level sentinels shared by the memory and postgres implementations.
var (
	ErrUserNotFound  = dErrors.New(dErrors.CodeNotFound, "user not found")
	ErrUsernameTaken = dErrors.New(dErrors.CodeConflict, "username already taken")
)

// UserStore persists user accounts.
type UserStore interface {
	// Create inserts the user; usernames are unique.
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}
