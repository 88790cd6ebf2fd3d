// Package auth provides the session middleware of the web application.
//
// The middleware reads the session cookie, reloads the user from the
// database and stores it in fiber.Locals (see internal/auth.CurrentUser).
// It never rejects a request: access decisions are made per route by the
// guards in internal/auth. Sessions of deleted or disabled accounts are
// ended on the next request.
//
// Usage:
//
//	app.Use(authmiddleware.New(db, !cfg.DevMode))
package auth
