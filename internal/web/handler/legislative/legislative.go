// Package legislative serves the archive of ordinances and resolutions.
package legislative

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/legislative"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path of the archive.
	Path = handler.RootPath + "legislative"

	// TemplateList lists documents.
	TemplateList = "legislative/list"
	// TemplateDetail shows one document.
	TemplateDetail = "legislative/detail"
	// TemplateForm creates or edits a document.
	TemplateForm = "legislative/form"
)

// Form is the submitted document.
type Form struct {
	Kind     string `form:"kind"      validate:"required,oneof=ordinance resolution"`
	Number   string `form:"number"    validate:"required,max=50"`
	Title    string `form:"title"     validate:"required,max=255"`
	Summary  string `form:"summary"`
	Year     int    `form:"year"      validate:"omitempty,min=1900,max=2100"`
	FileURL  string `form:"file_url"  validate:"omitempty,url"`
	Barangay string `form:"barangay"  validate:"max=100"`
}

// Service is the legislative handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the legislative handler.
var Handler = Service{}

// Init registers the archive routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	guard := auth.Require(rbac.PermManageLegislativeDocuments)

	app.Get(Path, s.List)
	app.Get(Path+"/new", guard, s.New)
	app.Post(Path, guard, s.Create)
	app.Get(Path+"/:id", s.Detail)
	app.Get(Path+"/:id/edit", guard, s.Edit)
	app.Post(Path+"/:id", guard, s.Update)
	app.Post(Path+"/:id/delete", guard, s.Delete)
}

func detailPath(id uint64) string {
	return Path + "/" + strconv.FormatUint(id, 10)
}

func notFound(err error) error {
	if errors.Is(err, controller.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Document not found")
	}

	return err
}

// List shows the archive filtered by kind, year, barangay and search text.
func (s *Service) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	filter := controller.Filter{
		Year:     c.QueryInt("year", 0),
		Barangay: c.Query("barangay"),
		Search:   c.Query("search"),
	}

	if raw := c.Query("kind"); raw != "" {
		kind, err := controller.ParseKind(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		filter.Kind = kind
	}

	res, err := controller.List(ctx, s.db, filter, handler.PageParams(c, portal.DefaultPageSize))
	if err != nil {
		log.Error().Err(err).Msg("list legislative documents failed")
		return err
	}

	years, err := controller.Years(ctx, s.db)
	if err != nil {
		return err
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": navigation.Page("Legislative Documents", navigation.SectionLegislative, "list").
			Current("Legislative Documents", Path),
		"Documents": res.Items,
		"Page":      res,
		"Filter":    filter,
		"Years":     years,
	}, handler.BaseLayout)
}

// Detail shows one document.
func (s *Service) Detail(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	d, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	return c.Render(TemplateDetail, fiber.Map{
		"Navigation": navigation.Page(d.Number, navigation.SectionLegislative, "detail").
			AddBreadcrumb("Legislative Documents", Path, false).
			Current(d.Number, detailPath(d.ID)),
		"Document": d,
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, form *Form, d *models.LegislativeDocument, msg string) error {
	title := "New Document"
	action := Path

	if d != nil {
		title = "Edit " + d.Number
		action = detailPath(d.ID)
	}

	barangays, err := barangay.Names(c.UserContext(), s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load barangay names")
	}

	data := fiber.Map{
		"Navigation": navigation.Page(title, navigation.SectionLegislative, "form").
			AddBreadcrumb("Legislative Documents", Path, false).
			Current(title, action),
		"Form":      form,
		"Document":  d,
		"Action":    action,
		"Barangays": barangays,
	}

	if msg != "" {
		data["Error"] = msg
	}

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}

func parseForm(c *fiber.Ctx) (*Form, controller.Input, string) {
	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return form, controller.Input{}, "Invalid form data"
	}

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return form, controller.Input{}, handler.FormErrorMessage(errs)
	}

	return form, controller.Input{
		Kind:     models.DocumentKind(form.Kind),
		Number:   form.Number,
		Title:    form.Title,
		Summary:  form.Summary,
		Year:     form.Year,
		FileURL:  form.FileURL,
		Barangay: form.Barangay,
	}, ""
}

func isInputError(err error) bool {
	return errors.Is(err, controller.ErrInvalidKind) ||
		errors.Is(err, controller.ErrMissingFields) ||
		errors.Is(err, controller.ErrDuplicateNumber)
}

// New renders the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, &Form{Kind: string(models.DocumentKindOrdinance)}, nil, "")
}

// Create archives a new document.
func (s *Service) Create(c *fiber.Ctx) error {
	form, in, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, msg)
	}

	d, err := controller.Create(c.UserContext(), s.db, in)

	switch {
	case isInputError(err):
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to create legislative document")
		return err
	}

	log.Info().Uint64("document_id", d.ID).Str("kind", string(d.Kind)).Str("number", d.Number).
		Msg("legislative document created")

	return c.Redirect(detailPath(d.ID))
}

// Edit renders the edit form.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	d, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form := &Form{
		Kind:     string(d.Kind),
		Number:   d.Number,
		Title:    d.Title,
		Summary:  d.Summary,
		Year:     d.Year,
		FileURL:  d.FileURL,
		Barangay: d.Barangay,
	}

	return s.renderForm(c, fiber.StatusOK, form, d, "")
}

// Update saves the edit form.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	d, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form, in, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, d, msg)
	}

	if _, err = controller.Update(c.UserContext(), s.db, id, in); err != nil {
		if isInputError(err) {
			return s.renderForm(c, fiber.StatusBadRequest, form, d, err.Error())
		}

		return notFound(err)
	}

	return c.Redirect(detailPath(id))
}

// Delete removes a document from the archive.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = controller.Delete(c.UserContext(), s.db, id); err != nil {
		return notFound(err)
	}

	return c.Redirect(Path)
}
