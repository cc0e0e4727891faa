package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kasirpos/kasirpos/internal/auth"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Insert(ctx context.Context, u User, passwordHash string) (int64, error)
	Update(ctx context.Context, u User) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	CountActiveOwners(ctx context.Context) (int, error)
}

// Service handles account management. Every operation requires an owner.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context, actor shared.Actor) ([]User, error) {
	if !actor.CanManageUsers() {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, actor shared.Actor, id int64) (*User, error) {
	if !actor.CanManageUsers() {
		return nil, shared.ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// CreateUser registers an account.
func (s *Service) CreateUser(ctx context.Context, actor shared.Actor, req CreateUserRequest) (*User, error) {
	if !actor.CanManageUsers() {
		return nil, shared.ErrForbidden
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Role:     req.Role,
		IsActive: true,
	}
	id, err := s.repo.Insert(ctx, user, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
		slog.Int64("actor_id", actor.ID))
	return s.repo.GetByID(ctx, id)
}

// UpdateUser rewrites account attributes. Demoting or deactivating the last
// active owner is rejected.
func (s *Service) UpdateUser(ctx context.Context, actor shared.Actor, id int64, req UpdateUserRequest) (*User, error) {
	if !actor.CanManageUsers() {
		return nil, shared.ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Name = strings.TrimSpace(req.Name)
	next.Email = strings.TrimSpace(req.Email)
	next.Role = req.Role
	if req.IsActive != nil {
		next.IsActive = *req.IsActive
	}

	losesOwner := current.Role == shared.RoleOwner && current.IsActive &&
		(next.Role != shared.RoleOwner || !next.IsActive)
	if losesOwner {
		owners, err := s.repo.CountActiveOwners(ctx)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetPassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user updated", slog.Int64("user_id", id), slog.Int64("actor_id", actor.ID))
	return s.repo.GetByID(ctx, id)
}
