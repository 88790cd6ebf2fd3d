package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

// APIPrefix is the path prefix of the JSON API.
const APIPrefix = "/api/"

// LoginPath is where guests are sent when a page needs a login.
const LoginPath = "/login"

// IsAPI reports a request to the JSON API.
func IsAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), APIPrefix)
}

// ErrorHandler is the fiber.Config ErrorHandler of the portal.
//
// Pages get the error template, the API gets {"error": message}. A 401 on a
// page redirects to the login with a next parameter.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong on our side. Please try again later."

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
	}

	if IsAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}

	if code == fiber.StatusUnauthorized && !strings.HasPrefix(c.Path(), AuthPath) {
		return c.Redirect(LoginPath + "?next=" + url.QueryEscape(c.OriginalURL()))
	}

	nav := navigation.Page("Error", "", "").Current(msg, c.OriginalURL())

	if errRender := c.Status(code).Render(TemplateError, fiber.Map{
		"Navigation": nav,
		"Status":     code,
		"Message":    msg,
	}, BaseLayout); errRender != nil {
		log.Error().Err(errRender).Msg("failed to render error page")

		return c.Status(code).SendString(msg)
	}

	return nil
}

// SafeNext accepts only local absolute paths as redirect targets.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return RootPath
	}

	return next
}
