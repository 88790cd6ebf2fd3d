package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	coreauth "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
)

// New returns a Fiber middleware that resolves the session cookie to a user.
// Guests pass through; logged-in users are redirected away from the login pages.
func New(db *gorm.DB, secureCookie bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(strings.ToLower(c.Path()), "/static") {
			return c.Next()
		}

		sessData, err := session.Current(c)
		if err != nil || !sessData.Authenticated() {
			return c.Next()
		}

		u, err := user.Get(c.UserContext(), db, sessData.UserID)

		switch {
		case errors.Is(err, user.ErrNotFound):
			session.End(c, secureCookie)
			return c.Next()
		case err != nil:
			log.Error().Err(err).Uint64("user_id", sessData.UserID).Msg("failed to load session user")
			return fiber.ErrInternalServerError
		case !u.Active:
			log.Info().Uint64("user_id", u.ID).Msg("ending session of disabled account")
			session.End(c, secureCookie)

			return c.Next()
		}

		coreauth.SetCurrentUser(c, u)

		if IsLoginPage(c) {
			return c.Redirect(RootPath)
		}

		return c.Next()
	}
}

// RootPath is where logged-in users land.
const RootPath = "/"

// IsLoginPage checks if the current request is for the login or registration page.
func IsLoginPage(c *fiber.Ctx) bool {
	p := strings.ToLower(c.Path())

	return p == loginPath || p == loginPath+"/" || p == registerPath || p == registerPath+"/"
}
