package rbac

import "strings"

// HasPermission reports whether s holds permission p.
func HasPermission(s Subject, p Permission) bool {
	if s == nil {
		return false
	}

	_, ok := rolePermissions[s.RoleName()][p]

	return ok
}

// HasAnyPermission reports whether s holds at least one of perms.
func HasAnyPermission(s Subject, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(s, p) {
			return true
		}
	}

	return false
}

// HasAllPermissions reports whether s holds every one of perms.
// A present user trivially holds an empty list; an absent user holds nothing.
func HasAllPermissions(s Subject, perms ...Permission) bool {
	if s == nil || !s.RoleName().Valid() {
		return false
	}

	for _, p := range perms {
		if !HasPermission(s, p) {
			return false
		}
	}

	return true
}

// CanEditBarangay reports whether s may edit the barangay named barangay.
//
//	admin      always
//	moderator  manage:barangay_resources and assigned to that barangay (case-insensitive)
//	otherwise  never
func CanEditBarangay(s Subject, barangay string) bool {
	if s == nil {
		return false
	}

	switch s.RoleName() {
	case RoleAdmin:
		return true
	case RoleModerator:
		if !HasPermission(s, PermManageBarangayResources) {
			return false
		}

		assigned := strings.TrimSpace(s.BarangayName())
		if assigned == "" {
			return false
		}

		return strings.EqualFold(assigned, strings.TrimSpace(barangay))
	default:
		return false
	}
}

// NeedsBarangayWarning reports a moderator without an assigned barangay.
// Such accounts are tolerated but can never pass CanEditBarangay.
func NeedsBarangayWarning(s Subject) bool {
	if s == nil {
		return false
	}

	return s.RoleName() == RoleModerator && strings.TrimSpace(s.BarangayName()) == ""
}
