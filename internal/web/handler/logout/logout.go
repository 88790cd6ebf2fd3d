// Package logout ends portal sessions.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

// Path is the logout route.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	cfg *config.Config
	// OIDCLogout returns the end session url of the identity provider for an
	// ID token, or "" to stay in the portal.
	OIDCLogout func(idToken string) string
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg

	// logout route (outside auth middleware protection)
	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)
}

// Logout handles user logout by clearing the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	data := session.End(c, handler.SecureCookie(s.cfg))
	if data == nil {
		return c.Redirect(handler.LoginPath)
	}

	log.Info().Uint64("user_id", data.UserID).Msg("user logged out")

	if data.IDToken != "" && s.OIDCLogout != nil {
		if target := s.OIDCLogout(data.IDToken); target != "" {
			return c.Redirect(target)
		}
	}

	return c.Redirect(handler.LoginPath)
}
