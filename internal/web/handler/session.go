package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

// SecureCookie reports whether session cookies carry the Secure flag.
// Dev mode serves plain http.
func SecureCookie(cfg *config.Config) bool {
	return !cfg.DevMode
}

// StartSession logs userID in. With totpPending the session only admits the
// second factor step.
func StartSession(c *fiber.Ctx, cfg *config.Config, userID uint64, totpPending bool, idToken string) error {
	return session.Begin(c, &session.Data{
		UserID:      userID,
		TOTPPending: totpPending,
		IDToken:     idToken,
	}, cfg.Webserver.Session.ExpiryTime, SecureCookie(cfg))
}
