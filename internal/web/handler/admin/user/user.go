// Package user provides handlers for managing users in the admin area.
package user

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	minPasswordLength = 8

	// warnNoBarangay is shown for moderators without an assigned barangay.
	warnNoBarangay = "This moderator has no barangay assigned and cannot edit any barangay."
)

// CreateForm is the submitted new account.
type CreateForm struct {
	Username   string `form:"username"    validate:"required,min=3,max=100"`
	Email      string `form:"email"       validate:"required,email,max=255"`
	FirstName  string `form:"firstname"   validate:"max=100"`
	LastName   string `form:"lastname"    validate:"max=100"`
	AuthSource string `form:"source"      validate:"required,oneof=local oidc ldap"`
	ExternalID string `form:"external_id"`
	Password   string `form:"password"    validate:"required_if=AuthSource local,max=200"`
	Active     bool   `form:"active"`
	Role       string `form:"role"        validate:"required"`
	Barangay   string `form:"barangay"    validate:"max=100"`
}

// UpdateForm is the submitted account change. An empty password keeps the
// current one.
type UpdateForm struct {
	Email     string `form:"email"     validate:"required,email,max=255"`
	FirstName string `form:"firstname" validate:"max=100"`
	LastName  string `form:"lastname"  validate:"max=100"`
	Password  string `form:"password"  validate:"omitempty,min=8"`
	Active    bool   `form:"active"`
	Role      string `form:"role"      validate:"required"`
	Barangay  string `form:"barangay"  validate:"max=100"`
}

// Service provides the user management pages.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	guard := auth.Require(rbac.PermManageUsers)

	// Routes
	app.Get(Path, guard, s.List)
	app.Get(Path+"/new", guard, s.New)
	app.Post(Path, guard, s.Create)
	app.Get(Path+"/:id/edit", guard, s.Edit)
	app.Post(Path+"/:id", guard, s.Update)
	app.Post(Path+"/:id/delete", guard, s.Delete)
}

func listNav() *navigation.Context {
	return navigation.Page("Users", navigation.SectionAdmin, "user").
		AddBreadcrumb("Admin", "#", false).
		Current("Users", Path)
}

func formNav(title, url string) *navigation.Context {
	return navigation.Page(title, navigation.SectionAdmin, "user").
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		Current(title, url)
}

func editPath(id uint64) string {
	return Path + "/" + strconv.FormatUint(id, 10) + "/edit"
}

// List shows users with pagination, search and role or barangay filters.
func (s *Service) List(c *fiber.Ctx) error {
	filter := controller.Filter{
		Search:   c.Query("search", ""),
		Barangay: c.Query("barangay", ""),
	}

	if raw := c.Query("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		filter.Role = role
	}

	res, err := controller.List(c.UserContext(), s.db, filter, handler.PageParams(c, DefaultPageSize))
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to load users",
			"Filter":     filter,
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    listNav(),
		"Users":         res.Items,
		"Page":          res,
		"CurrentUserID": auth.CurrentUser(c).ID,
		"Filter":        filter,
		"Roles":         rbac.Roles(),
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, data fiber.Map) error {
	barangays, err := barangay.Names(c.UserContext(), s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load barangay names")
	}

	data["Roles"] = rbac.Roles()
	data["Barangays"] = barangays

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, fiber.Map{
		"Navigation": formNav("New User", Path+"/new"),
		"User":       models.User{AuthSource: models.AuthSourceLocal, Active: true, Role: rbac.DefaultRole},
		"IsCreate":   true,
	})
}

// Create creates a new user.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(CreateForm)

	fail := func(status int, msg string) error {
		return s.renderForm(c, status, fiber.Map{
			"Navigation": formNav("New User", Path+"/new"),
			"User":       models.User{Username: in.Username, Email: in.Email, AuthSource: models.AuthSource(in.AuthSource)},
			"IsCreate":   true,
			"Error":      msg,
		})
	}

	if err := c.BodyParser(in); err != nil {
		return fail(fiber.StatusBadRequest, "Invalid form data")
	}

	if in.AuthSource != string(models.AuthSourceLocal) {
		in.Password = "" // ignore for non-local
	}

	if errs := handler.ValidateForm(in); len(errs) > 0 {
		return fail(fiber.StatusBadRequest, handler.FormErrorMessage(errs))
	}

	if in.Password != "" && len(in.Password) < minPasswordLength {
		return fail(fiber.StatusBadRequest, "Field 'Password' failed validation tag 'min'")
	}

	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return fail(fiber.StatusBadRequest, err.Error())
	}

	barangayName := strings.TrimSpace(in.Barangay)
	if role != rbac.RoleModerator {
		barangayName = ""
	}

	u, err := controller.Create(c.UserContext(), s.db, controller.Input{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.Password,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Role:       role,
		Barangay:   barangayName,
		AuthSource: models.AuthSource(in.AuthSource),
		ExternalID: strings.TrimSpace(in.ExternalID),
	})
	if err != nil {
		if errors.Is(err, controller.ErrUsernameTaken) || errors.Is(err, controller.ErrInvalidInput) {
			return fail(fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Msg("failed to create user")

		return err
	}

	if !in.Active {
		if err = controller.SetActive(c.UserContext(), s.db, u.ID, false); err != nil {
			return err
		}
	}

	log.Info().Uint64("user_id", u.ID).Str("username", u.Username).Str("role", u.Role.String()).
		Uint64("actor_id", auth.CurrentUser(c).ID).Msg("user created")

	if rbac.NeedsBarangayWarning(u) {
		return c.Redirect(editPath(u.ID))
	}

	return c.Redirect(Path)
}

func (s *Service) load(c *fiber.Ctx) (*models.User, error) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return nil, err
	}

	u, err := controller.Get(c.UserContext(), s.db, id)
	if errors.Is(err, controller.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}

	return u, err
}

func (s *Service) editData(u *models.User) fiber.Map {
	data := fiber.Map{
		"Navigation": formNav("Edit User", editPath(u.ID)),
		"User":       u,
		"IsCreate":   false,
	}

	if rbac.NeedsBarangayWarning(u) {
		data["Warning"] = warnNoBarangay
	}

	return data
}

// Edit shows the edit form for a user.
func (s *Service) Edit(c *fiber.Ctx) error {
	u, err := s.load(c)
	if err != nil {
		return err
	}

	return s.renderForm(c, fiber.StatusOK, s.editData(u))
}

// Update applies profile, password, role and active changes of a user.
// Role changes go through the single role mutation of the user controller.
func (s *Service) Update(c *fiber.Ctx) error {
	u, err := s.load(c)
	if err != nil {
		return err
	}

	fail := func(status int, msg string) error {
		data := s.editData(u)
		data["Error"] = msg

		return s.renderForm(c, status, data)
	}

	in := new(UpdateForm)
	if err = c.BodyParser(in); err != nil {
		return fail(fiber.StatusBadRequest, "Invalid form data")
	}

	if errs := handler.ValidateForm(in); len(errs) > 0 {
		return fail(fiber.StatusBadRequest, handler.FormErrorMessage(errs))
	}

	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return fail(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()

	if _, err = controller.UpdateProfile(ctx, s.db, u.ID, controller.Profile{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}); err != nil {
		return fail(fiber.StatusBadRequest, err.Error())
	}

	if in.Password != "" && u.AuthSource == models.AuthSourceLocal {
		if err = controller.SetPassword(ctx, s.db, u.ID, in.Password); err != nil {
			return err
		}
	}

	updated, err := controller.SetRole(ctx, s.db, u.ID, role, in.Barangay)
	if errors.Is(err, controller.ErrLastAdmin) {
		return fail(fiber.StatusBadRequest, err.Error())
	}

	if err != nil {
		return err
	}

	if in.Active != u.Active {
		err = controller.SetActive(ctx, s.db, u.ID, in.Active)
		if errors.Is(err, controller.ErrLastAdmin) {
			return fail(fiber.StatusBadRequest, err.Error())
		}

		if err != nil {
			return err
		}
	}

	log.Info().Uint64("user_id", u.ID).Str("role", updated.Role.String()).Str("barangay", updated.Barangay).
		Bool("active", in.Active).Uint64("actor_id", auth.CurrentUser(c).ID).Msg("user updated")

	if rbac.NeedsBarangayWarning(updated) {
		return c.Redirect(editPath(u.ID))
	}

	return c.Redirect(Path)
}

// Delete removes a user. Admins can not delete themselves or the last admin.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	actor := auth.CurrentUser(c)

	err = controller.Delete(c.UserContext(), s.db, actor.ID, id)

	switch {
	case errors.Is(err, controller.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	case errors.Is(err, controller.ErrSelfDelete), errors.Is(err, controller.ErrLastAdmin):
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      err.Error(),
		}, handler.BaseLayout)
	case err != nil:
		log.Error().Err(err).Uint64("user_id", id).Msg("failed to delete user")
		return err
	}

	log.Info().Uint64("user_id", id).Uint64("actor_id", actor.ID).Msg("user deleted")

	return c.Redirect(Path)
}
