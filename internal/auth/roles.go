package auth

import (
	"fmt"
	"strings"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// RoleMapping maps external group identifiers (LDAP group DNs, OIDC group
// names) to portal roles. Keys are compared case-insensitively.
type RoleMapping map[string]rbac.Role

// NewRoleMapping validates a raw mapping from configuration.
func NewRoleMapping(raw map[string]string) (RoleMapping, error) {
	m := make(RoleMapping, len(raw))

	for group, roleName := range raw {
		role, err := rbac.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("role mapping for %q: %w", group, err)
		}

		m[strings.ToLower(strings.TrimSpace(group))] = role
	}

	return m, nil
}

// Resolve returns the most privileged role mapped by any of groups,
// in the order of rbac.Roles. ok is false when no group is mapped.
func (m RoleMapping) Resolve(groups []string) (role rbac.Role, ok bool) {
	if len(m) == 0 || len(groups) == 0 {
		return "", false
	}

	matched := make(map[rbac.Role]struct{}, len(groups))

	for _, g := range groups {
		if r, found := m[strings.ToLower(strings.TrimSpace(g))]; found {
			matched[r] = struct{}{}
		}
	}

	for _, r := range rbac.Roles() {
		if _, found := matched[r]; found {
			return r, true
		}
	}

	return "", false
}
