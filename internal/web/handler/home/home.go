// Package home renders the portal landing page.
package home

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/announcement"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/article"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/event"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the landing page.
	Path = handler.RootPath

	// TemplateName is the landing page template.
	TemplateName = "home/home"

	sectionSize = 5
)

// Service is the landing page handler.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	now func() time.Time
}

// Handler is the landing page handler.
var Handler = Service{}

// Init registers the landing page.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.now = time.Now

	app.Get(Path, s.Get)
}

// Get shows the newest announcements, upcoming events and news.
func (s *Service) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	first := paging.Params{Page: 1, PageSize: sectionSize}

	settings, err := portal.Load(ctx, s.db, s.cfg.Title)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load portal settings")
	}

	announcements, err := announcement.List(ctx, s.db, announcement.Filter{}, first)
	if err != nil {
		return err
	}

	events, err := event.List(ctx, s.db, event.Filter{When: event.Upcoming, Now: s.now()}, first)
	if err != nil {
		return err
	}

	news, err := article.List(ctx, s.db, false, first)
	if err != nil {
		return err
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation":    navigation.NewContext(settings.FederationName, navigation.SectionHome, "home"),
		"Settings":      settings,
		"Announcements": announcements.Items,
		"Events":        events.Items,
		"News":          news.Items,
	}, handler.BaseLayout)
}
