// Package dashboard provides the analytics dashboard of the federation.
package dashboard

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/analytics"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// RoleCount is one row of the users per role table.
type RoleCount struct {
	Role  rbac.Role
	Count int64
}

// Service is the dashboard handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path, auth.Require(rbac.PermViewAnalytics), s.Get)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	// Create navigation context
	nav := navigation.Page("Dashboard", navigation.SectionDashboard, "dashboard").
		Current("Dashboard", Path)

	summary, err := analytics.Load(c.UserContext(), s.db, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard figures")
		return err
	}

	// Roles in their fixed order
	roles := make([]RoleCount, 0, len(rbac.Roles()))
	for _, r := range rbac.Roles() {
		roles = append(roles, RoleCount{Role: r, Count: summary.UsersByRole[r]})
	}

	log.Debug().
		Int64("users", summary.Users).
		Int64("announcements", summary.Announcements).
		Int64("polls", summary.Polls).
		Int64("votes", summary.Votes).
		Int64("upcoming_events", summary.UpcomingEvents).
		Msg("dashboard figures loaded")

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Summary":    summary,
		"Roles":      roles,
	}, handler.BaseLayout)
}
