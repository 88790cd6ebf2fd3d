// Package barangay serves the barangay profiles, their officials and the
// officials of the federation.
package barangay

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path of barangay profiles.
	Path = handler.RootPath + "barangays"
	// FederationPath is the page of the federation officials.
	FederationPath = handler.RootPath + "federation"

	// TemplateList lists barangays.
	TemplateList = "barangay/list"
	// TemplateDetail shows a barangay profile and its officials.
	TemplateDetail = "barangay/detail"
	// TemplateForm creates or edits a barangay profile.
	TemplateForm = "barangay/form"
	// TemplateFederation shows the federation officials.
	TemplateFederation = "barangay/federation"
)

// Form is the submitted barangay profile.
type Form struct {
	Name         string `form:"name"          validate:"required,max=100"`
	Description  string `form:"description"`
	ContactEmail string `form:"contact_email" validate:"omitempty,email"`
}

// OfficialForm is the submitted official.
type OfficialForm struct {
	Name     string `form:"name"     validate:"required,max=200"`
	Position string `form:"position" validate:"required,max=100"`
	Rank     int    `form:"rank"     validate:"min=0"`
	Term     string `form:"term"     validate:"max=50"`
}

// Service is the barangay handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the barangay handler.
var Handler = Service{}

// Init registers the barangay and federation routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	byID := auth.RequireBarangayEditor(s.barangayOf)
	byForm := auth.RequireBarangayEditor(formBarangay)
	manage := auth.Require(rbac.PermManageBarangayResources)

	app.Get(Path, s.List)
	app.Get(Path+"/new", manage, s.New)
	app.Post(Path, manage, byForm, s.Create)
	app.Get(Path+"/:id", s.Detail)
	app.Get(Path+"/:id/edit", auth.Require(rbac.PermEditOwnBarangay), byID, s.Edit)
	app.Post(Path+"/:id", auth.Require(rbac.PermEditOwnBarangay), byID, s.Update)
	app.Post(Path+"/:id/delete", manage, byID, s.Delete)

	officials := auth.Require(rbac.PermEditBarangayOfficials)
	app.Post(Path+"/:id/officials", officials, byID, s.AddOfficial)
	app.Post(Path+"/:id/officials/:official", officials, byID, s.UpdateOfficial)
	app.Post(Path+"/:id/officials/:official/delete", officials, byID, s.DeleteOfficial)

	federation := auth.Require(rbac.PermEditFederationOfficials)
	app.Get(FederationPath, s.Federation)
	app.Post(FederationPath+"/officials", federation, s.AddOfficial)
	app.Post(FederationPath+"/officials/:official", federation, s.UpdateOfficial)
	app.Post(FederationPath+"/officials/:official/delete", federation, s.DeleteOfficial)
}

func detailPath(id uint64) string {
	return Path + "/" + strconv.FormatUint(id, 10)
}

func notFound(err error) error {
	switch {
	case errors.Is(err, controller.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Barangay not found")
	case errors.Is(err, controller.ErrOfficialNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Official not found")
	}

	return err
}

// barangayOf resolves the barangay named by the :id route parameter.
func (s *Service) barangayOf(c *fiber.Ctx) (string, error) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return "", err
	}

	b, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return "", notFound(err)
	}

	return b.Name, nil
}

func formBarangay(c *fiber.Ctx) (string, error) {
	return strings.TrimSpace(c.FormValue("name")), nil
}

// List shows all barangays.
func (s *Service) List(c *fiber.Ctx) error {
	barangays, err := controller.List(c.UserContext(), s.db)
	if err != nil {
		log.Error().Err(err).Msg("list barangays failed")
		return err
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": navigation.Page("Barangays", navigation.SectionBarangays, "list").
			Current("Barangays", Path),
		"Barangays": barangays,
	}, handler.BaseLayout)
}

// Detail shows a barangay profile with its organizational chart.
func (s *Service) Detail(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	b, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	return c.Render(TemplateDetail, fiber.Map{
		"Navigation": navigation.Page(b.Name, navigation.SectionBarangays, "detail").
			AddBreadcrumb("Barangays", Path, false).
			Current(b.Name, detailPath(b.ID)),
		"Barangay": b,
		"CanEdit":  rbac.CanEditBarangay(auth.CurrentUser(c), b.Name),
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, form *Form, b *models.Barangay, msg string) error {
	title := "New Barangay"
	action := Path

	if b != nil {
		title = "Edit " + b.Name
		action = detailPath(b.ID)
	}

	data := fiber.Map{
		"Navigation": navigation.Page(title, navigation.SectionBarangays, "form").
			AddBreadcrumb("Barangays", Path, false).
			Current(title, action),
		"Form":     form,
		"Barangay": b,
		"Action":   action,
	}

	if msg != "" {
		data["Error"] = msg
	}

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}

func parseForm(c *fiber.Ctx) (*Form, string) {
	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return form, "Invalid form data"
	}

	form.Name = strings.TrimSpace(form.Name)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return form, handler.FormErrorMessage(errs)
	}

	return form, ""
}

func isInputError(err error) bool {
	return errors.Is(err, controller.ErrNameEmpty) || errors.Is(err, controller.ErrNameTaken)
}

// New renders the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, &Form{}, nil, "")
}

// Create stores a new barangay profile.
func (s *Service) Create(c *fiber.Ctx) error {
	form, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, msg)
	}

	b, err := controller.Create(c.UserContext(), s.db, controller.Input{
		Name:         form.Name,
		Description:  form.Description,
		ContactEmail: form.ContactEmail,
	})

	switch {
	case isInputError(err):
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to create barangay")
		return err
	}

	log.Info().Uint64("barangay_id", b.ID).Str("name", b.Name).Msg("barangay created")

	return c.Redirect(detailPath(b.ID))
}

// Edit renders the profile form.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	b, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	return s.renderForm(c, fiber.StatusOK, &Form{Name: b.Name, Description: b.Description, ContactEmail: b.ContactEmail}, b, "")
}

// Update saves the profile form. Moderators can not rename their barangay
// because the new name would fall outside their assignment.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	b, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, b, msg)
	}

	if !rbac.CanEditBarangay(auth.CurrentUser(c), form.Name) {
		return s.renderForm(c, fiber.StatusForbidden, form, b, "You may not rename this barangay")
	}

	_, err = controller.Update(c.UserContext(), s.db, id, controller.Input{
		Name:         form.Name,
		Description:  form.Description,
		ContactEmail: form.ContactEmail,
	})
	if err != nil {
		if isInputError(err) {
			return s.renderForm(c, fiber.StatusBadRequest, form, b, err.Error())
		}

		return notFound(err)
	}

	return c.Redirect(detailPath(id))
}

// Delete removes a barangay with its officials.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = controller.Delete(c.UserContext(), s.db, id); err != nil {
		return notFound(err)
	}

	log.Info().Uint64("barangay_id", id).Uint64("user_id", auth.CurrentUser(c).ID).Msg("barangay deleted")

	return c.Redirect(Path)
}

// Federation shows the officials of the federation.
func (s *Service) Federation(c *fiber.Ctx) error {
	officials, err := controller.FederationOfficials(c.UserContext(), s.db)
	if err != nil {
		return err
	}

	return c.Render(TemplateFederation, fiber.Map{
		"Navigation": navigation.Page("Federation Officials", navigation.SectionBarangays, "federation").
			Current("Federation Officials", FederationPath),
		"Officials": officials,
		"CanEdit":   rbac.HasPermission(auth.CurrentUser(c), rbac.PermEditFederationOfficials),
	}, handler.BaseLayout)
}

// chart returns the barangay id of the chart addressed by the route, nil
// for the federation, and the page to return to.
func chart(c *fiber.Ctx) (*uint64, string, error) {
	if c.Params("id") == "" {
		return nil, FederationPath, nil
	}

	id, err := handler.ParamID(c, "id")
	if err != nil {
		return nil, "", err
	}

	return &id, detailPath(id), nil
}

// officialOf loads the :official parameter and checks it sits in the chart.
func (s *Service) officialOf(c *fiber.Ctx, barangayID *uint64) (*models.Official, error) {
	oid, err := handler.ParamID(c, "official")
	if err != nil {
		return nil, err
	}

	o, err := controller.GetOfficial(c.UserContext(), s.db, oid)
	if err != nil {
		return nil, notFound(err)
	}

	same := (o.BarangayID == nil && barangayID == nil) ||
		(o.BarangayID != nil && barangayID != nil && *o.BarangayID == *barangayID)
	if !same {
		return nil, notFound(controller.ErrOfficialNotFound)
	}

	return o, nil
}

func parseOfficial(c *fiber.Ctx) (controller.OfficialInput, error) {
	form := new(OfficialForm)
	if err := c.BodyParser(form); err != nil {
		return controller.OfficialInput{}, fiber.NewError(fiber.StatusBadRequest, "Invalid form data")
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Position = strings.TrimSpace(form.Position)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return controller.OfficialInput{}, fiber.NewError(fiber.StatusBadRequest, handler.FormErrorMessage(errs))
	}

	return controller.OfficialInput{Name: form.Name, Position: form.Position, Rank: form.Rank, Term: form.Term}, nil
}

// AddOfficial adds a seat to a barangay or to the federation chart.
func (s *Service) AddOfficial(c *fiber.Ctx) error {
	barangayID, back, err := chart(c)
	if err != nil {
		return err
	}

	in, err := parseOfficial(c)
	if err != nil {
		return err
	}

	o, err := controller.AddOfficial(c.UserContext(), s.db, barangayID, in)
	if err != nil {
		return notFound(err)
	}

	log.Info().Uint64("official_id", o.ID).Str("position", o.Position).Msg("official added")

	return c.Redirect(back)
}

// UpdateOfficial replaces a seat of a chart.
func (s *Service) UpdateOfficial(c *fiber.Ctx) error {
	barangayID, back, err := chart(c)
	if err != nil {
		return err
	}

	o, err := s.officialOf(c, barangayID)
	if err != nil {
		return err
	}

	in, err := parseOfficial(c)
	if err != nil {
		return err
	}

	if _, err = controller.UpdateOfficial(c.UserContext(), s.db, o.ID, in); err != nil {
		return notFound(err)
	}

	return c.Redirect(back)
}

// DeleteOfficial removes a seat of a chart.
func (s *Service) DeleteOfficial(c *fiber.Ctx) error {
	barangayID, back, err := chart(c)
	if err != nil {
		return err
	}

	o, err := s.officialOf(c, barangayID)
	if err != nil {
		return err
	}

	if err = controller.DeleteOfficial(c.UserContext(), s.db, o.ID); err != nil {
		return notFound(err)
	}

	return c.Redirect(back)
}
