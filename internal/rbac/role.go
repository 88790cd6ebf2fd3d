package rbac

import (
	"fmt"
	"strings"
)

// Role is the capability tier attached to every user.
type Role string

const (
	// RoleAdmin has every permission and may edit every barangay.
	RoleAdmin Role = "admin"
	// RoleModerator manages the resources of one assigned barangay.
	RoleModerator Role = "moderator"
	// RoleEditor manages federation-wide content.
	RoleEditor Role = "editor"
	// RoleUser is the default role given at registration.
	RoleUser Role = "user"

	// DefaultRole is assigned to newly registered accounts.
	DefaultRole = RoleUser
)

// Roles lists all roles from most to least privileged.
func Roles() []Role {
	return []Role{RoleAdmin, RoleModerator, RoleEditor, RoleUser}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleEditor, RoleUser:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name, ignoring case and surrounding whitespace.
func ParseRole(name string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}

	return r, nil
}

// Subject is anything that carries a role and an optional barangay assignment.
// Implementations must tolerate being called on a nil pointer.
type Subject interface {
	RoleName() Role
	BarangayName() string
}

// Identity is a minimal Subject, used where no database user is at hand
// (API token claims, tests, CLI).
type Identity struct {
	Role     Role
	Barangay string
}

// RoleName implements Subject.
func (i *Identity) RoleName() Role {
	if i == nil {
		return ""
	}

	return i.Role
}

// BarangayName implements Subject.
func (i *Identity) BarangayName() string {
	if i == nil {
		return ""
	}

	return i.Barangay
}
