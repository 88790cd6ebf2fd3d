package handler

import (
	"strings"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// ContentBarangay returns the barangay a new announcement or event of u is
// scoped to. Moderators always publish for their own barangay.
func ContentBarangay(u *models.User, requested string) string {
	if u != nil && u.Role == rbac.RoleModerator {
		return u.Barangay
	}

	return strings.TrimSpace(requested)
}
