package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

const (
	// LocalsUser is the fiber.Locals key holding the *models.User of the request.
	LocalsUser = "CurrentUser"

	forbiddenMsg = "Forbidden: You don't have permission to access this resource"
)

// CurrentUser returns the user of the request or nil for guests.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalsUser).(*models.User)

	return u
}

// SetCurrentUser places u into the request locals.
func SetCurrentUser(c *fiber.Ctx, u *models.User) {
	c.Locals(LocalsUser, u)
}

// RequireAuthenticated rejects guests with 401.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return fiber.ErrUnauthorized
		}

		return c.Next()
	}
}

// Require creates Fiber middleware that requires every one of the given permissions.
func Require(permissions ...rbac.Permission) fiber.Handler {
	return guard(permissions, rbac.HasAllPermissions)
}

// RequireAny creates Fiber middleware that requires at least one of the given permissions.
func RequireAny(permissions ...rbac.Permission) fiber.Handler {
	return guard(permissions, rbac.HasAnyPermission)
}

func guard(permissions []rbac.Permission, check func(rbac.Subject, ...rbac.Permission) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return fiber.ErrUnauthorized
		}

		if !check(u, permissions...) {
			log.Warn().Uint64("user_id", u.ID).Str("role", u.Role.String()).
				Interface("permissions", permissions).Str("path", c.Path()).
				Msg("user lacks required permission")

			return fiber.NewError(fiber.StatusForbidden, forbiddenMsg)
		}

		return c.Next()
	}
}

// BarangayResolver returns the barangay a request targets.
type BarangayResolver func(c *fiber.Ctx) (string, error)

// RequireBarangayEditor allows the request only if the user may edit the
// barangay returned by resolve. Resolver errors are passed through.
func RequireBarangayEditor(resolve BarangayResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return fiber.ErrUnauthorized
		}

		barangay, err := resolve(c)
		if err != nil {
			return err
		}

		if !rbac.CanEditBarangay(u, barangay) {
			log.Warn().Uint64("user_id", u.ID).Str("role", u.Role.String()).
				Str("barangay", barangay).Str("assigned", u.Barangay).
				Msg("user may not edit barangay")

			return fiber.NewError(fiber.StatusForbidden, forbiddenMsg)
		}

		return c.Next()
	}
}

// AddPermissionsToLocals is a Fiber middleware that adds the permissions of the
// current user to fiber.Locals for conditional rendering in templates.
func AddPermissionsToLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)

		var granted []rbac.Permission
		if u != nil {
			granted = rbac.PermissionsFor(u.Role)
		}

		c.Locals("permissions", granted)
		c.Locals("hasPermission", func(perm string) bool {
			return rbac.HasPermission(u, rbac.Permission(perm))
		})
		c.Locals("canEditBarangay", func(barangay string) bool {
			return rbac.CanEditBarangay(u, barangay)
		})

		return c.Next()
	}
}
