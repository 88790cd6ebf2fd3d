// Package oidc provides handlers for the OpenID Connect (OIDC) login flow.
//
// The flow includes:
//   - Login initiation with CSRF protection via single use state tokens
//   - Authorization callback handling with ID token verification
//   - Account creation or refresh from ID token claims, with group to role mapping
//   - Session creation that keeps the raw ID token as logout hint
//
// Routes, registered only when OIDC is enabled:
//
//	GET /auth/oidc/login    - Initiate OIDC login flow
//	GET /auth/oidc/callback - Handle provider callback
//
// Logout goes through the logout handler, which asks LogoutURL for the
// provider's end session endpoint.
package oidc
