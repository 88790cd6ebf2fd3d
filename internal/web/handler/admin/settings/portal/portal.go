// Package portal serves the portal settings page of the admin area.
package portal

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the path to the portal settings page.
	Path = handler.RootPath + "admin/settings/portal"

	// TemplateName is the name of the portal settings template.
	TemplateName = "admin/settings/portal"
)

// Service is the portal settings handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the portal settings handler.
var Handler = Service{}

// Init initializes the portal settings handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	// register routes with permission checks
	app.Get(Path, auth.Require(rbac.PermManageUsers), s.Get)
	app.Post(Path, auth.Require(rbac.PermManageUsers), s.Post)
}

func nav() *navigation.Context {
	return navigation.Page("Portal Settings", navigation.SectionAdmin, "settings").
		AddBreadcrumb("Settings", "#", false).
		Current("Portal Settings", Path)
}

// Get handles the portal settings page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	// Missing settings load as defaults
	settings, err := controller.Load(c.UserContext(), s.db, s.cfg.Title)
	if err != nil {
		log.Error().Err(err).Msg("failed to load portal settings")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load settings")
	}

	return c.Render(TemplateName, fiber.Map{
		"Settings":   settings,
		"Navigation": nav(),
	}, handler.BaseLayout)
}

// Post handles the portal settings form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	// Parse form data into settings struct
	settings := &controller.Settings{}
	if err := c.BodyParser(settings); err != nil {
		log.Error().Err(err).Msg("failed to parse portal settings form")

		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"Settings":   settings,
			"Navigation": nav(),
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	settings.FederationName = strings.TrimSpace(settings.FederationName)
	settings.ContactEmail = strings.TrimSpace(settings.ContactEmail)

	// Validate settings
	if errs := handler.ValidateForm(settings); len(errs) > 0 {
		log.Debug().Int("errors", len(errs)).Msg("validation failed for portal settings")

		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"Settings":   settings,
			"Navigation": nav(),
			"Error":      handler.FormErrorMessage(errs),
		}, handler.BaseLayout)
	}

	if settings.AnnouncementsPage == 0 {
		settings.AnnouncementsPage = controller.DefaultPageSize
	}

	// Save settings to database
	if err := settings.Save(c.UserContext(), s.db); err != nil {
		log.Error().Err(err).Msg("failed to save portal settings")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Settings":   settings,
			"Navigation": nav(),
			"Error":      "Failed to save settings",
		}, handler.BaseLayout)
	}

	log.Info().
		Str("federation_name", settings.FederationName).
		Bool("registration_enabled", settings.RegistrationEnabled).
		Int("announcements_page", settings.AnnouncementsPage).
		Msg("portal settings saved successfully")

	return c.Render(TemplateName, fiber.Map{
		"Settings":   settings,
		"Navigation": nav(),
		"Message":    "Settings saved successfully",
	}, handler.BaseLayout)
}
