package web

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	coreauth "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/excerpt"
	fiberlogger "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger/adapter/fiber"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/api"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/account"
	portalsettings "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/admin/settings/portal"
	adminuser "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/admin/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/announcement"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/article"
	oidchandler "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/auth/oidc"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/barangay"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/dashboard"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/event"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/home"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/legislative"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/login"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/logout"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/notification"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/middleware/auth"
)

const (
	// CheckAlivePath answers 200 while the service accepts traffic.
	CheckAlivePath = "/checkalive"

	localsUsername = "username"
	excerptLength  = 200
)

// OfficialsView is the data of the officials partial.
type OfficialsView struct {
	Officials []models.Official
	CanEdit   bool
	Base      string // path the official forms post to
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the configured port.
func (s *Service) Start() error {
	var doneFiber = make(chan bool)

	addr := fmt.Sprintf(":%d", s.cfg.Webserver.Port)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a termination signal and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// CheckAlive answers 503 once a shutdown has begun.
func (s *Service) CheckAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("ok")
}

// NewEngine returns the template engine with the portal's helper functions.
func NewEngine(cfg *config.Config) *html.Engine {
	engine := html.NewFileSystem(assetDir("templates"), ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		engine = html.New("./internal/web/templates", ".gohtml")
		engine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	engine.AddFunc("iterate", func(count int) []int {
		result := make([]int, count)
		for i := range result {
			result[i] = i
		}

		return result
	})
	engine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	engine.AddFunc("sub", func(a, b int) int {
		return a - b
	})
	engine.AddFunc("ago", func(t time.Time) string {
		if t.IsZero() {
			return ""
		}

		return humanize.Time(t)
	})
	engine.AddFunc("count", func(n int64) string {
		return humanize.Comma(n)
	})
	engine.AddFunc("ordinal", humanize.Ordinal)
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("Jan 2, 2006 3:04 PM")
	})
	engine.AddFunc("excerpt", func(body string) string {
		return excerpt.Make(body, excerptLength)
	})
	engine.AddFunc("officials", func(list []models.Official, canEdit bool, base string) OfficialsView {
		return OfficialsView{Officials: list, CanEdit: canEdit, Base: base}
	})
	// only for URIs built by the portal itself, such as the TOTP QR code
	engine.AddFunc("safeURL", func(s string) htmltemplate.URL {
		return htmltemplate.URL(s) //nolint:gosec
	})
	engine.AddFunc("title", func(s string) string {
		if s == "" {
			return s
		}

		return strings.ToUpper(s[:1]) + s[1:]
	})

	return engine
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize:    8192,
			AppName:           cfg.Title,
			CaseSensitive:     true,
			Prefork:           false,
			Immutable:         true,
			Views:             NewEngine(cfg),
			PassLocalsToViews: true,
			ErrorHandler:      handler.ErrorHandler,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Get(CheckAlivePath, service.CheckAlive)

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:   assetDir("static"),
				Browse: cfg.Webserver.BrowseStatic,
				MaxAge: staticMaxAge(cfg),
			},
		),
	)

	// session cookie -> current user
	app.Use(auth.New(db, handler.SecureCookie(cfg)))
	app.Use(func(c *fiber.Ctx) error {
		if u := coreauth.CurrentUser(c); u != nil {
			c.Locals(localsUsername, u.Username)
		}

		return c.Next()
	})

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
		UserLocal:     localsUsername,
	}))

	// permissions for conditional rendering in templates
	app.Use(coreauth.AddPermissionsToLocals())

	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// init handlers (they register their own routes with permission checks)
	login.Handler.Init(app, cfg, db)
	oidchandler.Handler.Init(app, cfg, db)
	logout.Handler.OIDCLogout = oidchandler.Handler.LogoutURL
	logout.Handler.Init(app, cfg)
	account.Handler.Init(app, cfg, db)
	home.Handler.Init(app, cfg, db)
	announcement.Handler.Init(app, cfg, db)
	event.Handler.Init(app, cfg, db)
	article.Handler.Init(app, cfg, db)
	barangay.Handler.Init(app, cfg, db)
	legislative.Handler.Init(app, cfg, db)
	notification.Handler.Init(app, cfg, db)
	dashboard.Handler.Init(app, cfg, db)
	adminuser.Handler.Init(app, cfg, db)
	portalsettings.Handler.Init(app, cfg, db)
	api.Handler.Init(app, cfg, db)

	return service
}

func staticMaxAge(cfg *config.Config) int {
	if cfg.Webserver.CacheEnabled {
		return int((24 * time.Hour).Seconds())
	}

	return 0
}
