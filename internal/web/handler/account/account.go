// Package account lets a logged-in user manage their own profile, password
// and second factor.
package account

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the account page.
	Path = handler.RootPath + "account"
	// PasswordPath changes the password.
	PasswordPath = Path + "/password"
	// TwoFactorPath enrolls and confirms the second factor.
	TwoFactorPath = Path + "/2fa"
	// TwoFactorDisablePath switches the second factor off.
	TwoFactorDisablePath = TwoFactorPath + "/disable"

	// TemplateProfile is the account page template.
	TemplateProfile = "account/profile"
	// TemplateTwoFactor is the enrollment template.
	TemplateTwoFactor = "account/2fa"
)

var (
	// ErrPasswordMismatch is returned when the new passwords differ.
	ErrPasswordMismatch = errors.New("new passwords do not match")
	// ErrNotLocal is returned for password and second factor changes of external accounts.
	ErrNotLocal = errors.New("this account is managed by an external login provider")
)

// ProfileForm is the submitted profile form.
type ProfileForm struct {
	Email     string `form:"email"      validate:"required,email,max=255"`
	FirstName string `form:"first_name" validate:"max=100"`
	LastName  string `form:"last_name"  validate:"max=100"`
}

// PasswordForm is the submitted password form.
type PasswordForm struct {
	Current string `form:"current" validate:"required"`
	New     string `form:"new"     validate:"required,min=8"`
	Confirm string `form:"confirm" validate:"required"`
}

// CodeForm carries a second factor code.
type CodeForm struct {
	Code string `form:"code" validate:"required,numeric,len=6"`
}

// Service is the account handler service.
type Service struct {
	cfg   *config.Config
	db    *gorm.DB
	local *auth.LocalProvider
	now   func() time.Time
}

// Handler is the account handler.
var Handler = Service{}

// Init initializes the account handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.local = auth.NewLocalProvider(db)
	s.now = time.Now

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuthenticated())
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
		router.Post("/password", s.Password)
		router.Get("/2fa", s.TwoFactor)
		router.Post("/2fa", s.TwoFactorConfirm)
		router.Post("/2fa/disable", s.TwoFactorDisable)
	})
}

func (s *Service) render(c *fiber.Ctx, status int, u *models.User, data fiber.Map) error {
	m := fiber.Map{
		"Navigation":  navigation.Page("My Account", navigation.SectionAccount, "profile").Current("My Account", Path),
		"User":        u,
		"Permissions": rbac.PermissionsFor(u.Role),
		"IsLocal":     u.AuthSource == models.AuthSourceLocal,
		"Warning":     rbac.NeedsBarangayWarning(u),
	}

	for k, v := range data {
		m[k] = v
	}

	return c.Status(status).Render(TemplateProfile, m, handler.BaseLayout)
}

// Get renders the account page.
func (s *Service) Get(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, auth.CurrentUser(c), nil)
}

// Post updates the profile.
func (s *Service) Post(c *fiber.Ctx) error {
	current := auth.CurrentUser(c)

	form := new(ProfileForm)
	if err := c.BodyParser(form); err != nil {
		return s.render(c, fiber.StatusBadRequest, current, fiber.Map{"Error": "Invalid form data"})
	}

	form.Email = strings.TrimSpace(form.Email)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return s.render(c, fiber.StatusBadRequest, current, fiber.Map{"Error": handler.FormErrorMessage(errs)})
	}

	u, err := user.UpdateProfile(c.UserContext(), s.db, current.ID, user.Profile{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		log.Error().Err(err).Uint64("user_id", current.ID).Msg("failed to update profile")
		return err
	}

	return s.render(c, fiber.StatusOK, u, fiber.Map{"Success": "Profile saved"})
}

// Password changes the password of a local account.
func (s *Service) Password(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)
	if u.AuthSource != models.AuthSourceLocal {
		return s.render(c, fiber.StatusBadRequest, u, fiber.Map{"Error": ErrNotLocal.Error()})
	}

	form := new(PasswordForm)
	if err := c.BodyParser(form); err != nil {
		return s.render(c, fiber.StatusBadRequest, u, fiber.Map{"Error": "Invalid form data"})
	}

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return s.render(c, fiber.StatusBadRequest, u, fiber.Map{"Error": handler.FormErrorMessage(errs)})
	}

	if form.New != form.Confirm {
		return s.render(c, fiber.StatusBadRequest, u, fiber.Map{"Error": ErrPasswordMismatch.Error()})
	}

	err := s.local.ChangePassword(c.UserContext(), u.ID, form.Current, form.New)

	switch {
	case errors.Is(err, auth.ErrInvalidOldPassword), errors.Is(err, auth.ErrPasswordTooShort):
		return s.render(c, fiber.StatusBadRequest, u, fiber.Map{"Error": err.Error()})
	case err != nil:
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to change password")
		return err
	}

	log.Info().Uint64("user_id", u.ID).Msg("password changed")

	return s.render(c, fiber.StatusOK, u, fiber.Map{"Success": "Password changed"})
}

func (s *Service) issuer() string {
	if s.cfg.Auth.TOTP.Issuer != "" {
		return s.cfg.Auth.TOTP.Issuer
	}

	return s.cfg.Title
}

func (s *Service) renderTwoFactor(c *fiber.Ctx, status int, data fiber.Map) error {
	m := fiber.Map{
		"Navigation": navigation.Page("Two-factor authentication", navigation.SectionAccount, "2fa").
			AddBreadcrumb("My Account", Path, false).
			Current("Two-factor authentication", TwoFactorPath),
	}

	for k, v := range data {
		m[k] = v
	}

	return c.Status(status).Render(TemplateTwoFactor, m, handler.BaseLayout)
}

// TwoFactor starts an enrollment with a fresh secret. The secret is stored
// disabled until a code is confirmed.
func (s *Service) TwoFactor(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)
	if u.AuthSource != models.AuthSourceLocal {
		return fiber.NewError(fiber.StatusBadRequest, ErrNotLocal.Error())
	}

	if u.TOTPEnabled {
		return s.renderTwoFactor(c, fiber.StatusOK, fiber.Map{"Enabled": true})
	}

	enrollment, err := auth.GenerateTOTP(s.issuer(), u.Username)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate totp secret")
		return err
	}

	if err = user.SetTOTP(c.UserContext(), s.db, u.ID, enrollment.Secret, false); err != nil {
		return err
	}

	return s.renderTwoFactor(c, fiber.StatusOK, fiber.Map{"Enrollment": enrollment})
}

// TwoFactorConfirm enables the second factor once a code for the stored secret verifies.
func (s *Service) TwoFactorConfirm(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)
	if u.AuthSource != models.AuthSourceLocal || u.TOTPSecret == "" {
		return c.Redirect(TwoFactorPath)
	}

	form := new(CodeForm)
	if err := c.BodyParser(form); err != nil || len(handler.ValidateForm(form)) > 0 {
		return s.renderTwoFactor(c, fiber.StatusBadRequest, fiber.Map{"Error": auth.ErrInvalidTOTP.Error()})
	}

	if err := auth.ValidateTOTP(u.TOTPSecret, form.Code, s.now()); err != nil {
		return s.renderTwoFactor(c, fiber.StatusBadRequest, fiber.Map{"Error": err.Error()})
	}

	if err := user.SetTOTP(c.UserContext(), s.db, u.ID, u.TOTPSecret, true); err != nil {
		return err
	}

	log.Info().Uint64("user_id", u.ID).Msg("second factor enabled")

	return s.renderTwoFactor(c, fiber.StatusOK, fiber.Map{"Enabled": true, "Success": "Two-factor authentication enabled"})
}

// TwoFactorDisable removes the second factor after a valid code.
func (s *Service) TwoFactorDisable(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)
	if !u.TOTPEnabled {
		return c.Redirect(Path)
	}

	form := new(CodeForm)
	if err := c.BodyParser(form); err != nil || len(handler.ValidateForm(form)) > 0 {
		return s.renderTwoFactor(c, fiber.StatusBadRequest, fiber.Map{"Enabled": true, "Error": auth.ErrInvalidTOTP.Error()})
	}

	if err := auth.ValidateTOTP(u.TOTPSecret, form.Code, s.now()); err != nil {
		return s.renderTwoFactor(c, fiber.StatusBadRequest, fiber.Map{"Enabled": true, "Error": err.Error()})
	}

	if err := user.SetTOTP(c.UserContext(), s.db, u.ID, "", false); err != nil {
		return err
	}

	log.Info().Uint64("user_id", u.ID).Msg("second factor disabled")

	return c.Redirect(Path)
}
