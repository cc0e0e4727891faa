package shared

// Role names the two account types the system knows about.
type Role string

const (
	// RoleOwner (pemilik) may view revenue, cancel sales and manage users.
	RoleOwner Role = "pemilik"
	// RoleEmployee (pegawai) operates the register.
	RoleEmployee Role = "pegawai"
)

// Actor identifies the authenticated user performing an operation. Core
// services receive the actor explicitly; nothing reads ambient auth state.
type Actor struct {
	ID       int64
	Username string
	Name     string
	Role     Role
}

// IsOwner reports whether the actor holds the owner role.
func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// CanViewRevenue reports whether revenue figures may be shown to the actor.
func (a Actor) CanViewRevenue() bool {
	return a.IsOwner()
}

// CanManageUsers reports whether the actor may administer accounts.
func (a Actor) CanManageUsers() bool {
	return a.IsOwner()
}
