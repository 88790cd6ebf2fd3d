// Package rbac decides what a portal user may do.
//
// The role to permission table is fixed at compile time. Every check takes the
// user explicitly and is pure: no I/O, no errors, no global session state.
// An absent user (nil) and an unknown role both evaluate to "not permitted".
//
// Barangay records add one scoped rule on top of the table: a moderator may
// edit the barangay they are assigned to, compared case-insensitively, and
// nothing else. Admins may edit every barangay.
//
// Example:
//
//	if rbac.HasPermission(user, rbac.PermCreateAnnouncement) {
//	    // show the "new announcement" button
//	}
//
//	if rbac.CanEditBarangay(user, barangay.Name) {
//	    // allow the officials form
//	}
package rbac
