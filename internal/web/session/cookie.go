package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Begin stores data under a fresh session id and sets the cookie.
// Any previous session of the request is removed first.
func Begin(c *fiber.Ctx, data *Data, expiry time.Duration, secure bool) error {
	_ = Delete(c.Cookies(CookieName))

	sessionID, err := GenerateSessionID()
	if err != nil {
		return err
	}

	if err = data.Write(sessionID, expiry); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		MaxAge:   int(expiry.Seconds()),
		Secure:   secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return nil
}

// Current reads the session of the request.
func Current(c *fiber.Ctx) (*Data, error) {
	data := new(Data)
	if err := data.Read(c.Cookies(CookieName)); err != nil {
		return nil, err
	}

	return data, nil
}

// End deletes the session of the request and expires the cookie.
// It returns the ended session data, if there was one.
func End(c *fiber.Ctx, secure bool) *Data {
	sessionID := c.Cookies(CookieName)

	data := new(Data)
	if err := data.Read(sessionID); err != nil {
		data = nil
	}

	_ = Delete(sessionID)

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return data
}
