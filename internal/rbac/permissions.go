package rbac

// Permission names a single capability.
type Permission string

// The fixed permission vocabulary.
const (
	PermCreateAnnouncement         Permission = "create:announcement"
	PermEditAnnouncement           Permission = "edit:announcement"
	PermDeleteAnnouncement         Permission = "delete:announcement"
	PermCreateEvent                Permission = "create:event"
	PermEditEvent                  Permission = "edit:event"
	PermDeleteEvent                Permission = "delete:event"
	PermManageUsers                Permission = "manage:users"
	PermViewAnalytics              Permission = "view:analytics"
	PermUploadResources            Permission = "upload:resources"
	PermDeleteResources            Permission = "delete:resources"
	PermSendNotifications          Permission = "send:notifications"
	PermEditFederationOfficials    Permission = "edit:federation_officials"
	PermEditBarangayOfficials      Permission = "edit:barangay_officials"
	PermEditSKContent              Permission = "edit:sk_content"
	PermEditOwnBarangay            Permission = "edit:own_barangay"
	PermManageBarangayResources    Permission = "manage:barangay_resources"
	PermViewBarangayResources      Permission = "view:barangay_resources"
	PermManageLegislativeDocuments Permission = "manage:legislative_documents"
)

// AllPermissions returns the full vocabulary in declaration order.
func AllPermissions() []Permission {
	return []Permission{
		PermCreateAnnouncement,
		PermEditAnnouncement,
		PermDeleteAnnouncement,
		PermCreateEvent,
		PermEditEvent,
		PermDeleteEvent,
		PermManageUsers,
		PermViewAnalytics,
		PermUploadResources,
		PermDeleteResources,
		PermSendNotifications,
		PermEditFederationOfficials,
		PermEditBarangayOfficials,
		PermEditSKContent,
		PermEditOwnBarangay,
		PermManageBarangayResources,
		PermViewBarangayResources,
		PermManageLegislativeDocuments,
	}
}

// rolePermissions is the role to permission table. It is read-only after init.
var rolePermissions = map[Role]map[Permission]struct{}{ //nolint:gochecknoglobals
	RoleAdmin: setOf(AllPermissions()...),
	RoleModerator: setOf(
		PermCreateAnnouncement,
		PermCreateEvent,
		PermUploadResources,
		PermEditBarangayOfficials,
		PermEditOwnBarangay,
		PermManageBarangayResources,
		PermViewBarangayResources,
	),
	RoleEditor: setOf(
		PermCreateAnnouncement,
		PermEditAnnouncement,
		PermDeleteAnnouncement,
		PermCreateEvent,
		PermEditEvent,
		PermDeleteEvent,
		PermViewAnalytics,
		PermUploadResources,
		PermSendNotifications,
		PermEditFederationOfficials,
		PermEditSKContent,
		PermViewBarangayResources,
		PermManageLegislativeDocuments,
	),
	RoleUser: setOf(
		PermViewBarangayResources,
	),
}

func setOf(perms ...Permission) map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		out[p] = struct{}{}
	}

	return out
}

// PermissionsFor returns the permissions granted to role, in vocabulary order.
// Unknown roles get an empty slice.
func PermissionsFor(role Role) []Permission {
	granted := rolePermissions[role]
	out := make([]Permission, 0, len(granted))

	for _, p := range AllPermissions() {
		if _, ok := granted[p]; ok {
			out = append(out, p)
		}
	}

	return out
}
