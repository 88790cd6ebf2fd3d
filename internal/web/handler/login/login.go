package login

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = handler.LoginPath
	// TwoFactorPath is the second factor step of a login.
	TwoFactorPath = Path + "/2fa"
	// RegisterPath is the self registration page.
	RegisterPath = handler.RootPath + "register"

	// TemplateName is the login page template.
	TemplateName = "login/login"
	// TemplateTwoFactor is the second factor template.
	TemplateTwoFactor = "login/2fa"
	// TemplateRegister is the registration template.
	TemplateRegister = "login/register"

	authTypeLocal = "local"
	authTypeLDAP  = "ldap"
)

// Form is the submitted login form.
type Form struct {
	Username string `form:"username"  validate:"required,max=100"`
	Password string `form:"password"  validate:"required"`
	AuthType string `form:"auth_type"`
	Next     string `form:"next"`
}

// TwoFactorForm is the submitted second factor form.
type TwoFactorForm struct {
	Code string `form:"code" validate:"required,numeric,len=6"`
	Next string `form:"next"`
}

// RegisterForm is the submitted registration form.
type RegisterForm struct {
	Username  string `form:"username"   validate:"required,min=3,max=100,alphanum"`
	Email     string `form:"email"      validate:"required,email,max=255"`
	Password  string `form:"password"   validate:"required,min=8"`
	Confirm   string `form:"confirm"    validate:"required"`
	FirstName string `form:"first_name" validate:"max=100"`
	LastName  string `form:"last_name"  validate:"max=100"`
}

// Service is the login handler service.
type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	local    *auth.LocalProvider
	ldapAuth *auth.LDAPProvider
	now      func() time.Time
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)
	s.now = time.Now

	if cfg.Auth.LDAP.Enabled {
		p, err := auth.NewLDAPProvider(auth.LDAPConfig{LDAPAuth: cfg.Auth.LDAP}, db)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize LDAP provider - LDAP login will be disabled")
		} else {
			s.ldapAuth = p
		}
	}

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
		router.Get("/2fa", s.TwoFactor)
		router.Post("/2fa", s.TwoFactorPost)
	})

	app.Get(RegisterPath, s.Register)
	app.Post(RegisterPath, s.RegisterPost)
}

func (s *Service) page(title string) *navigation.Context {
	return navigation.Page(title, navigation.SectionAccount, "login").Current(title, Path)
}

func (s *Service) loginView(c *fiber.Ctx, next string, err error) fiber.Map {
	m := fiber.Map{
		"Navigation":          s.page("Login"),
		"LocalEnabled":        s.cfg.Auth.LocalDB.Enabled,
		"LDAPEnabled":         s.cfg.Auth.LDAP.Enabled && s.ldapAuth != nil,
		"OIDCEnabled":         s.cfg.Auth.OIDC.Enabled,
		"RegistrationEnabled": s.registrationOpen(c.UserContext()),
		"Next":                next,
	}

	if err != nil {
		m["Error"] = err.Error()
	}

	return m
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(TemplateName, s.loginView(c, c.Query("next"), nil), handler.BaseLayout)
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)
	if err := c.BodyParser(form); err != nil || len(handler.ValidateForm(form)) > 0 {
		return c.Render(TemplateName, s.loginView(c, form.Next, ErrInvalidFormData), handler.BaseLayout)
	}

	authType, err := s.pickAuthType(form.AuthType)
	if err != nil {
		return c.Render(TemplateName, s.loginView(c, form.Next, err), handler.BaseLayout)
	}

	u, err := s.authenticate(c.UserContext(), authType, strings.TrimSpace(form.Username), form.Password)
	if err != nil {
		return c.Render(TemplateName, s.loginView(c, form.Next, err), handler.BaseLayout)
	}

	if u.TOTPEnabled {
		if err = handler.StartSession(c, s.cfg, u.ID, true, ""); err != nil {
			log.Error().Err(err).Msg("failed to write session")
			return c.Render(TemplateName, s.loginView(c, form.Next, ErrInternalServerError), handler.BaseLayout)
		}

		return c.Redirect(TwoFactorPath + "?next=" + url.QueryEscape(handler.SafeNext(form.Next)))
	}

	if err = handler.StartSession(c, s.cfg, u.ID, false, ""); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Render(TemplateName, s.loginView(c, form.Next, ErrInternalServerError), handler.BaseLayout)
	}

	log.Info().Str("username", u.Username).Str("auth_type", authType).Msg("user logged in")

	return c.Redirect(handler.SafeNext(form.Next))
}

// pickAuthType selects the login method. An empty request prefers local login.
func (s *Service) pickAuthType(requested string) (string, error) {
	switch requested {
	case "":
		switch {
		case s.cfg.Auth.LocalDB.Enabled:
			return authTypeLocal, nil
		case s.cfg.Auth.LDAP.Enabled:
			return authTypeLDAP, nil
		default:
			return "", ErrNoAuthMethod
		}
	case authTypeLocal:
		if !s.cfg.Auth.LocalDB.Enabled {
			return "", ErrLocalAuthDisabled
		}

		return authTypeLocal, nil
	case authTypeLDAP:
		if !s.cfg.Auth.LDAP.Enabled || s.ldapAuth == nil {
			return "", ErrLDAPAuthDisabled
		}

		return authTypeLDAP, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// authenticate runs the chosen provider and maps its errors to page messages.
func (s *Service) authenticate(ctx context.Context, authType, username, password string) (*models.User, error) {
	var (
		u   *models.User
		err error
	)

	switch authType {
	case authTypeLocal:
		u, err = s.local.Authenticate(ctx, username, password)
	case authTypeLDAP:
		if s.ldapAuth == nil {
			return nil, ErrLDAPAuthDisabled
		}

		u, err = s.ldapAuth.Authenticate(ctx, username, password)
	default:
		return nil, ErrInvalidAuthMethod
	}

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return nil, ErrAccountDisabled
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrMultipleUsersFound):
		log.Info().Str("username", username).Str("auth_type", authType).Msg("login failed")
		return nil, ErrInvalidCredentials
	default:
		log.Error().Err(err).Str("auth_type", authType).Msg("login error")
		return nil, ErrInternalServerError
	}
}

// TwoFactor renders the code prompt of a pending login.
func (s *Service) TwoFactor(c *fiber.Ctx) error {
	data, err := session.Current(c)
	if err != nil || !data.TOTPPending {
		return c.Redirect(Path)
	}

	return c.Render(TemplateTwoFactor, fiber.Map{
		"Navigation": s.page("Verification"),
		"Next":       c.Query("next"),
	}, handler.BaseLayout)
}

// TwoFactorPost verifies the code and completes the login.
func (s *Service) TwoFactorPost(c *fiber.Ctx) error {
	data, err := session.Current(c)
	if err != nil || !data.TOTPPending {
		return c.Redirect(Path)
	}

	form := new(TwoFactorForm)
	render := func(e error) error {
		return c.Render(TemplateTwoFactor, fiber.Map{
			"Navigation": s.page("Verification"),
			"Next":       form.Next,
			"Error":      e.Error(),
		}, handler.BaseLayout)
	}

	if err = c.BodyParser(form); err != nil || len(handler.ValidateForm(form)) > 0 {
		return render(ErrInvalidCode)
	}

	u, err := user.Get(c.UserContext(), s.db, data.UserID)
	if err != nil || !u.Active || !u.TOTPEnabled {
		session.End(c, handler.SecureCookie(s.cfg))
		return c.Redirect(Path)
	}

	if err = auth.ValidateTOTP(u.TOTPSecret, form.Code, s.now()); err != nil {
		log.Info().Str("username", u.Username).Msg("second factor failed")
		return render(ErrInvalidCode)
	}

	if err = handler.StartSession(c, s.cfg, u.ID, false, ""); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return render(ErrInternalServerError)
	}

	log.Info().Str("username", u.Username).Msg("user logged in with second factor")

	return c.Redirect(handler.SafeNext(form.Next))
}

// registrationOpen requires local login, the config switch and the portal setting.
func (s *Service) registrationOpen(ctx context.Context) bool {
	if !s.cfg.Auth.LocalDB.Enabled || !s.cfg.Auth.Registration.Enabled {
		return false
	}

	settings, err := portal.Load(ctx, s.db, s.cfg.Title)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load portal settings")
	}

	return settings.RegistrationEnabled
}

func (s *Service) registerView(form *RegisterForm, msg string) fiber.Map {
	m := fiber.Map{
		"Navigation": navigation.Page("Register", navigation.SectionAccount, "register").Current("Register", RegisterPath),
		"Form":       form,
	}

	if msg != "" {
		m["Error"] = msg
	}

	return m
}

// Register renders the sign up form.
func (s *Service) Register(c *fiber.Ctx) error {
	if !s.registrationOpen(c.UserContext()) {
		return fiber.NewError(fiber.StatusNotFound, auth.ErrRegistrationDisabled.Error())
	}

	return c.Render(TemplateRegister, s.registerView(&RegisterForm{}, ""), handler.BaseLayout)
}

// RegisterPost creates an account with the default role and logs it in.
func (s *Service) RegisterPost(c *fiber.Ctx) error {
	if !s.registrationOpen(c.UserContext()) {
		return fiber.NewError(fiber.StatusNotFound, auth.ErrRegistrationDisabled.Error())
	}

	form := new(RegisterForm)
	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateRegister,
			s.registerView(form, ErrInvalidFormData.Error()), handler.BaseLayout)
	}

	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).Render(TemplateRegister,
			s.registerView(form, handler.FormErrorMessage(errs)), handler.BaseLayout)
	}

	if form.Password != form.Confirm {
		return c.Status(fiber.StatusBadRequest).Render(TemplateRegister,
			s.registerView(form, ErrPasswordMismatch.Error()), handler.BaseLayout)
	}

	u, err := s.local.Register(c.UserContext(), auth.Registration{
		Username:  form.Username,
		Email:     form.Email,
		Password:  form.Password,
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
	})

	switch {
	case errors.Is(err, user.ErrUsernameTaken), errors.Is(err, auth.ErrPasswordTooShort):
		return c.Status(fiber.StatusConflict).Render(TemplateRegister, s.registerView(form, err.Error()), handler.BaseLayout)
	case err != nil:
		log.Error().Err(err).Msg("failed to register user")
		return err
	}

	if err = handler.StartSession(c, s.cfg, u.ID, false, ""); err != nil {
		return err
	}

	log.Info().Str("username", u.Username).Msg("user registered")

	return c.Redirect(handler.RootPath)
}
