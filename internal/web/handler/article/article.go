// Package article serves the federation news pages.
package article

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/article"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/excerpt"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path of the news section.
	Path = handler.RootPath + "news"

	// TemplateList lists articles.
	TemplateList = "article/list"
	// TemplateDetail shows one article.
	TemplateDetail = "article/detail"
	// TemplateForm creates or edits an article.
	TemplateForm = "article/form"
)

// Form is the submitted article form.
type Form struct {
	Title     string `form:"title"     validate:"required,max=200"`
	Body      string `form:"body"`
	Published bool   `form:"published"`
}

// Row is one article of the list view.
type Row struct {
	Article models.Article
	Excerpt string
}

// Service is the news handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the news handler.
var Handler = Service{}

// Init registers the news routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	guard := auth.Require(rbac.PermEditSKContent)

	app.Get(Path, s.List)
	app.Get(Path+"/new", guard, s.New)
	app.Post(Path, guard, s.Create)
	app.Get(Path+"/:slug", s.Detail)
	app.Get(Path+"/:id/edit", guard, s.Edit)
	app.Post(Path+"/:id", guard, s.Update)
	app.Post(Path+"/:id/delete", guard, s.Delete)
}

func canEdit(c *fiber.Ctx) bool {
	return rbac.HasPermission(auth.CurrentUser(c), rbac.PermEditSKContent)
}

func notFound(err error) error {
	if errors.Is(err, controller.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Article not found")
	}

	return err
}

// List shows published articles. Content editors also see drafts.
func (s *Service) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	settings, err := portal.Load(ctx, s.db, s.cfg.Title)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load portal settings")
	}

	res, err := controller.List(ctx, s.db, canEdit(c), handler.PageParams(c, settings.AnnouncementsPage))
	if err != nil {
		log.Error().Err(err).Msg("list articles failed")
		return err
	}

	rows := make([]Row, 0, len(res.Items))
	for _, a := range res.Items {
		rows = append(rows, Row{Article: a, Excerpt: excerpt.Make(a.Body, excerpt.DefaultLength)})
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": navigation.Page("News", navigation.SectionNews, "list").Current("News", Path),
		"Rows":       rows,
		"Page":       res,
	}, handler.BaseLayout)
}

// Detail shows one article by slug. Drafts are hidden from readers.
func (s *Service) Detail(c *fiber.Ctx) error {
	a, err := controller.GetBySlug(c.UserContext(), s.db, c.Params("slug"))
	if err != nil {
		return notFound(err)
	}

	if !a.Published && !canEdit(c) {
		return notFound(controller.ErrNotFound)
	}

	return c.Render(TemplateDetail, fiber.Map{
		"Navigation": navigation.Page(a.Title, navigation.SectionNews, "detail").
			AddBreadcrumb("News", Path, false).
			Current(a.Title, Path+"/"+a.Slug),
		"Article": a,
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, form *Form, a *models.Article, msg string) error {
	title := "New Article"
	action := Path

	if a != nil {
		title = "Edit Article"
		action = Path + "/" + strconv.FormatUint(a.ID, 10)
	}

	data := fiber.Map{
		"Navigation": navigation.Page(title, navigation.SectionNews, "form").
			AddBreadcrumb("News", Path, false).
			Current(title, action),
		"Form":    form,
		"Article": a,
		"Action":  action,
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

	form.Title = strings.TrimSpace(form.Title)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return form, handler.FormErrorMessage(errs)
	}

	return form, ""
}

// New renders the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, &Form{}, nil, "")
}

// Create stores a new article.
func (s *Service) Create(c *fiber.Ctx) error {
	form, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, msg)
	}

	u := auth.CurrentUser(c)

	a, err := controller.Create(c.UserContext(), s.db, u.ID,
		controller.Input{Title: form.Title, Body: form.Body, Published: form.Published}, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to create article")
		return err
	}

	log.Info().Uint64("article_id", a.ID).Str("slug", a.Slug).Uint64("user_id", u.ID).Msg("article created")

	return c.Redirect(Path + "/" + a.Slug)
}

// Edit renders the edit form.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	return s.renderForm(c, fiber.StatusOK, &Form{Title: a.Title, Body: a.Body, Published: a.Published}, a, "")
}

// Update saves the edit form.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form, msg := parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, a, msg)
	}

	a, err = controller.Update(c.UserContext(), s.db, id,
		controller.Input{Title: form.Title, Body: form.Body, Published: form.Published}, time.Now())
	if err != nil {
		return notFound(err)
	}

	return c.Redirect(Path + "/" + a.Slug)
}

// Delete removes an article.
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
