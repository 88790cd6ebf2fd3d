package oidc

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.AuthPath + "oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.AuthPath + "oidc/callback"

	sweepInterval = time.Minute

	msgUnavailable = "OIDC authentication is not available"
)

// Service is the OIDC handler service.
type Service struct {
	cfg          *config.Config
	db           *gorm.DB
	oidcProvider *auth.OIDCProvider
	states       *auth.StateStore
	now          func() time.Time
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. Routes exist whenever OIDC is enabled;
// they answer 503 while the provider could not be reached.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.states = auth.NewStateStore(auth.StateTTL)
	s.now = time.Now

	if !cfg.Auth.OIDC.Enabled {
		log.Info().Msg("OIDC authentication is disabled by configuration")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := auth.NewOIDCProvider(ctx, cfg.Auth.OIDC, db)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OIDC provider - OIDC authentication will be disabled")
	} else {
		s.oidcProvider = p

		log.Info().Msg("OIDC authentication provider initialized")
	}

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	go s.sweepStates(sweepInterval)
}

// Available reports a usable provider.
func (s *Service) Available() bool {
	return s.oidcProvider != nil
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgUnavailable)
	}

	state, err := s.states.Issue(s.now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate state token")
		return err
	}

	return c.Redirect(s.oidcProvider.GetAuthURL(state))
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgUnavailable)
	}

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("Missing code or state in OIDC callback")
		return fiber.NewError(fiber.StatusBadRequest, "Invalid callback parameters")
	}

	if !s.states.Consume(state, s.now()) {
		log.Error().Str("state", state).Msg("Invalid or expired state token")
		return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired state token")
	}

	u, idToken, err := s.oidcProvider.HandleCallback(c.UserContext(), code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC authentication failed")

		if errors.Is(err, auth.ErrUserAccountDisabled) {
			return fiber.NewError(fiber.StatusForbidden, "Your account is disabled")
		}

		return fiber.NewError(fiber.StatusUnauthorized, "Authentication failed")
	}

	if err = handler.StartSession(c, s.cfg, u.ID, false, idToken); err != nil {
		log.Error().Err(err).Msg("Failed to write session")
		return err
	}

	log.Info().Str("username", u.Username).Str("role", u.Role.String()).Msg("User logged in successfully via OIDC")

	return c.Redirect(handler.RootPath)
}

// LogoutURL returns the end session url for idToken, or "" if the provider has none.
func (s *Service) LogoutURL(idToken string) string {
	if s.oidcProvider == nil {
		return ""
	}

	return s.oidcProvider.GetLogoutURL(idToken, s.cfg.Webserver.URL)
}

// sweepStates periodically removes expired state tokens.
func (s *Service) sweepStates(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		if n := s.states.Sweep(s.now()); n > 0 {
			log.Debug().Int("removed", n).Msg("expired OIDC state tokens removed")
		}
	}
}
