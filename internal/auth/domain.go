package auth

import (
	"time"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// User represents an account that can sign in at the register.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         shared.Role `json:"role"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Actor converts the user record into the actor identity carried in context.
func (u User) Actor() shared.Actor {
	return shared.Actor{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}
