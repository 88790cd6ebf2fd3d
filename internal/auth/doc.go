// Package auth provides authentication for the portal and the fiber glue
// around the static access control evaluator in package rbac.
//
// Login methods:
//   - LocalProvider checks username and Argon2id password against the users table
//   - LDAPProvider binds against a directory and maps group DNs to a portal role
//   - OIDCProvider runs the OAuth2 code flow and maps a groups claim to a portal role
//
// Every account holds exactly one role. Directory and identity provider logins
// keep the role assigned in the portal unless a RoleMapping entry matches, in
// which case the mapped role (and barangay, for moderators) is written back on
// each login.
//
// A local account may enrol a TOTP second factor (see GenerateTOTP and ValidateTOTP).
// The JSON API authenticates with HMAC signed tokens issued by TokenIssuer.
//
// # Middleware
//
// The current user is expected in fiber.Locals under LocalsUser, placed there
// by the session middleware. The guards only consult rbac:
//
//	app.Post("/announcements",
//	    auth.Require(rbac.PermCreateAnnouncement),
//	    handler,
//	)
//
//	app.Post("/barangays/:id/officials",
//	    auth.RequireBarangayEditor(resolveBarangay),
//	    handler,
//	)
package auth
