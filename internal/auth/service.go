package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a bearer token. Inactive accounts
// fail the same way unknown usernames do.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, user.Actor())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ResolveToken returns the actor behind a bearer token.
func (s *Service) ResolveToken(ctx context.Context, token string) (shared.Actor, error) {
	return s.tokens.Resolve(ctx, token)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
