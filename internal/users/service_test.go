package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/shared"
)

type memoryRepo struct {
	users  map[int64]*User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) Insert(ctx context.Context, u User, passwordHash string) (int64, error) {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return 0, ErrDuplicateUsername
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = &u
	r.hashes[u.ID] = passwordHash
	return u.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, u User) error {
	if _, ok := r.users[u.ID]; !ok {
		return shared.ErrNotFound
	}
	r.users[u.ID] = &u
	return nil
}

func (r *memoryRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	r.hashes[id] = passwordHash
	return nil
}

func (r *memoryRepo) CountActiveOwners(ctx context.Context) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.Role == shared.RoleOwner && u.IsActive {
			n++
		}
	}
	return n, nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ownerActor() shared.Actor {
	return shared.Actor{ID: 1, Username: "pemilik", Name: "Pemilik", Role: shared.RoleOwner}
}

func employeeActor() shared.Actor {
	return shared.Actor{ID: 2, Username: "kasir", Name: "Kasir", Role: shared.RoleEmployee}
}

func seedOwner(t *testing.T, repo *memoryRepo) *User {
	t.Helper()
	id, err := repo.Insert(context.Background(), User{
		Username: "pemilik", Name: "Pemilik", Role: shared.RoleOwner, IsActive: true,
	}, "hash")
	require.NoError(t, err)
	return repo.users[id]
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	seedOwner(t, repo)
	svc := newTestService(repo)

	user, err := svc.CreateUser(context.Background(), ownerActor(), CreateUserRequest{
		Username: "Kasir1", Name: "Kasir Satu", Role: shared.RoleEmployee, Password: "rahasia123",
	})
	require.NoError(t, err)
	require.Equal(t, "kasir1", user.Username)
	require.True(t, user.IsActive)

	hash := repo.hashes[user.ID]
	require.NotEmpty(t, hash)
	require.NotEqual(t, "rahasia123", hash)
}

func TestCreateUserForbiddenForEmployee(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), employeeActor(), CreateUserRequest{
		Username: "x", Name: "X", Role: shared.RoleEmployee, Password: "rahasia123",
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := newMemoryRepo()
	seedOwner(t, repo)
	svc := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), ownerActor(), CreateUserRequest{
		Username: "pemilik", Name: "Lain", Role: shared.RoleEmployee, Password: "rahasia123",
	})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUpdateCannotDeactivateLastOwner(t *testing.T) {
	repo := newMemoryRepo()
	owner := seedOwner(t, repo)
	svc := newTestService(repo)

	inactive := false
	_, err := svc.UpdateUser(context.Background(), ownerActor(), owner.ID, UpdateUserRequest{
		Name: owner.Name, Role: shared.RoleOwner, IsActive: &inactive,
	})
	require.ErrorIs(t, err, ErrLastOwner)

	_, err = svc.UpdateUser(context.Background(), ownerActor(), owner.ID, UpdateUserRequest{
		Name: owner.Name, Role: shared.RoleEmployee,
	})
	require.ErrorIs(t, err, ErrLastOwner)
}

func TestUpdateDemotesOwnerWhenAnotherExists(t *testing.T) {
	repo := newMemoryRepo()
	owner := seedOwner(t, repo)
	_, err := repo.Insert(context.Background(), User{
		Username: "pemilik2", Name: "Pemilik Dua", Role: shared.RoleOwner, IsActive: true,
	}, "hash")
	require.NoError(t, err)
	svc := newTestService(repo)

	updated, err := svc.UpdateUser(context.Background(), ownerActor(), owner.ID, UpdateUserRequest{
		Name: owner.Name, Role: shared.RoleEmployee,
	})
	require.NoError(t, err)
	require.Equal(t, shared.RoleEmployee, updated.Role)
}
