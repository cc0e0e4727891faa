package users

import (
	"errors"
	"time"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// User is the management view of an account. The password hash never leaves
// the package.
type User struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateUserRequest carries payload for POST /users.
type CreateUserRequest struct {
	Username string      `json:"username" validate:"required,min=3,max=50"`
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Role     shared.Role `json:"role" validate:"required,oneof=pemilik pegawai"`
	Password string      `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest carries payload for PUT /users/{id}. Password, when set,
// replaces the current one.
type UpdateUserRequest struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Role     shared.Role `json:"role" validate:"required,oneof=pemilik pegawai"`
	IsActive *bool       `json:"is_active"`
	Password string      `json:"password" validate:"omitempty,min=8"`
}

// ErrDuplicateUsername indicates the username is already taken.
var ErrDuplicateUsername = errors.New("users: username already exists")

// ErrLastOwner indicates the change would leave no active owner.
var ErrLastOwner = errors.New("users: at least one active owner is required")
