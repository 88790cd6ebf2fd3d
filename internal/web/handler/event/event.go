// Package event serves the event calendar, event registrations and the
// registrant lists.
package event

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
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/event"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path of events.
	Path = handler.RootPath + "events"

	// TemplateList lists events.
	TemplateList = "event/list"
	// TemplateDetail shows one event.
	TemplateDetail = "event/detail"
	// TemplateForm creates or edits an event.
	TemplateForm = "event/form"
	// TemplateRegistrants lists the users registered for an event.
	TemplateRegistrants = "event/registrants"

	// DateTimeLayout is the layout of datetime-local inputs.
	DateTimeLayout = "2006-01-02T15:04"
)

// Form is the submitted event form.
type Form struct {
	Title       string `form:"title"       validate:"required,max=200"`
	Description string `form:"description"`
	Location    string `form:"location"    validate:"max=255"`
	Barangay    string `form:"barangay"    validate:"max=100"`
	StartsAt    string `form:"starts_at"   validate:"required"`
	EndsAt      string `form:"ends_at"`
	Capacity    int    `form:"capacity"    validate:"min=0"`
	Tags        string `form:"tags"`
}

// Row is one event of the list view.
type Row struct {
	Event      models.Event
	Registered int64
	Ended      bool
}

// Service is the event handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	now func() time.Time
}

// Handler is the event handler.
var Handler = Service{}

// Init registers the event routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	if s.now == nil {
		s.now = time.Now
	}

	app.Get(Path, s.List)
	app.Get(Path+"/new", auth.Require(rbac.PermCreateEvent), s.New)
	app.Post(Path, auth.Require(rbac.PermCreateEvent), s.Create)
	app.Get(Path+"/:id", s.Detail)
	app.Get(Path+"/:id/edit", auth.Require(rbac.PermEditEvent), s.Edit)
	app.Post(Path+"/:id", auth.Require(rbac.PermEditEvent), s.Update)
	app.Post(Path+"/:id/delete", auth.Require(rbac.PermDeleteEvent), s.Delete)
	app.Post(Path+"/:id/register", auth.RequireAuthenticated(), s.Register)
	app.Post(Path+"/:id/unregister", auth.RequireAuthenticated(), s.Unregister)
	app.Get(Path+"/:id/registrants", auth.RequireAny(rbac.PermEditEvent, rbac.PermCreateEvent), s.Registrants)
}

func detailPath(id uint64) string {
	return Path + "/" + strconv.FormatUint(id, 10)
}

func notFound(err error) error {
	if errors.Is(err, controller.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Event not found")
	}

	return err
}

// List shows upcoming events, or past events with ?when=past.
func (s *Service) List(c *fiber.Ctx) error {
	ctx := c.UserContext()
	now := s.now()

	when, tab := controller.Upcoming, "upcoming"
	if c.Query("when") == "past" {
		when, tab = controller.Past, "past"
	}

	res, err := controller.List(ctx, s.db, controller.Filter{
		When:     when,
		Barangay: c.Query("barangay"),
		Now:      now,
	}, handler.PageParams(c, portal.DefaultPageSize))
	if err != nil {
		log.Error().Err(err).Msg("list events failed")
		return err
	}

	ids := make([]uint64, 0, len(res.Items))
	for _, ev := range res.Items {
		ids = append(ids, ev.ID)
	}

	counts, err := controller.RegistrationCounts(ctx, s.db, ids)
	if err != nil {
		return err
	}

	rows := make([]Row, 0, len(res.Items))
	for i := range res.Items {
		ev := res.Items[i]
		rows = append(rows, Row{Event: ev, Registered: counts[ev.ID], Ended: controller.Ended(&ev, now)})
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": navigation.Page("Events", navigation.SectionEvents, tab).
			Current("Events", Path),
		"Rows": rows,
		"Page": res,
		"Tab":  tab,
	}, handler.BaseLayout)
}

// Detail shows an event with its seat count and the registration state of
// the current user.
func (s *Service) Detail(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()

	ev, err := controller.Get(ctx, s.db, id)
	if err != nil {
		return notFound(err)
	}

	counts, err := controller.RegistrationCounts(ctx, s.db, []uint64{id})
	if err != nil {
		return err
	}

	registered := false

	if u := auth.CurrentUser(c); u != nil {
		if registered, err = controller.IsRegistered(ctx, s.db, id, u.ID); err != nil {
			return err
		}
	}

	taken := counts[id]

	return c.Render(TemplateDetail, fiber.Map{
		"Navigation": navigation.Page(ev.Title, navigation.SectionEvents, "detail").
			AddBreadcrumb("Events", Path, false).
			Current(ev.Title, detailPath(ev.ID)),
		"Event":      ev,
		"Tags":       controller.Tags(ev),
		"Registered": taken,
		"Full":       ev.Capacity > 0 && taken >= int64(ev.Capacity),
		"Ended":      controller.Ended(ev, s.now()),
		"IsAttendee": registered,
	}, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, form *Form, ev *models.Event, msg string) error {
	title := "New Event"
	action := Path

	if ev != nil {
		title = "Edit Event"
		action = detailPath(ev.ID)
	}

	barangays, err := barangay.Names(c.UserContext(), s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load barangay names")
	}

	data := fiber.Map{
		"Navigation": navigation.Page(title, navigation.SectionEvents, "form").
			AddBreadcrumb("Events", Path, false).
			Current(title, action),
		"Form":      form,
		"Event":     ev,
		"Action":    action,
		"Barangays": barangays,
	}

	if msg != "" {
		data["Error"] = msg
	}

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}

// New renders the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, &Form{}, nil, "")
}

func parseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(DateTimeLayout, raw, time.Local)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func splitTags(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' })
}

// input validates form and converts it to a controller input.
func input(c *fiber.Ctx) (*Form, controller.Input, string) {
	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return form, controller.Input{}, "Invalid form data"
	}

	form.Title = strings.TrimSpace(form.Title)

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return form, controller.Input{}, handler.FormErrorMessage(errs)
	}

	starts, err := parseTime(form.StartsAt)
	if err != nil || starts == nil {
		return form, controller.Input{}, "Invalid start time"
	}

	ends, err := parseTime(form.EndsAt)
	if err != nil {
		return form, controller.Input{}, "Invalid end time"
	}

	return form, controller.Input{
		Title:       form.Title,
		Description: form.Description,
		Location:    strings.TrimSpace(form.Location),
		Barangay:    form.Barangay,
		StartsAt:    *starts,
		EndsAt:      ends,
		Capacity:    form.Capacity,
		Tags:        splitTags(form.Tags),
	}, ""
}

func isInputError(err error) bool {
	return errors.Is(err, controller.ErrTitleEmpty) ||
		errors.Is(err, controller.ErrStartMissing) ||
		errors.Is(err, controller.ErrEndBeforeStart) ||
		errors.Is(err, controller.ErrNegativeCapacity)
}

// Create stores a new event.
func (s *Service) Create(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)

	form, in, msg := input(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, msg)
	}

	in.Barangay = handler.ContentBarangay(u, in.Barangay)

	ev, err := controller.Create(c.UserContext(), s.db, u.ID, in)

	switch {
	case isInputError(err):
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to create event")
		return err
	}

	log.Info().Uint64("event_id", ev.ID).Uint64("user_id", u.ID).Msg("event created")

	return c.Redirect(detailPath(ev.ID))
}

// Edit renders the edit form.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	ev, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form := &Form{
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Barangay:    ev.Barangay,
		StartsAt:    ev.StartsAt.Local().Format(DateTimeLayout),
		Capacity:    ev.Capacity,
		Tags:        strings.Join(controller.Tags(ev), ", "),
	}

	if ev.EndsAt != nil {
		form.EndsAt = ev.EndsAt.Local().Format(DateTimeLayout)
	}

	return s.renderForm(c, fiber.StatusOK, form, ev, "")
}

// Update saves the edit form.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	ev, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form, in, msg := input(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, ev, msg)
	}

	if _, err = controller.Update(c.UserContext(), s.db, id, in); err != nil {
		if isInputError(err) {
			return s.renderForm(c, fiber.StatusBadRequest, form, ev, err.Error())
		}

		return notFound(err)
	}

	return c.Redirect(detailPath(id))
}

// Delete removes an event with its registrations.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = controller.Delete(c.UserContext(), s.db, id); err != nil {
		return notFound(err)
	}

	log.Info().Uint64("event_id", id).Uint64("user_id", auth.CurrentUser(c).ID).Msg("event deleted")

	return c.Redirect(Path)
}

// Register signs the current user up for the event.
func (s *Service) Register(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	u := auth.CurrentUser(c)

	_, err = controller.Register(c.UserContext(), s.db, id, u.ID, s.now())

	switch {
	case errors.Is(err, controller.ErrEventFull),
		errors.Is(err, controller.ErrAlreadyRegistered),
		errors.Is(err, controller.ErrEventOver):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return notFound(err)
	}

	log.Info().Uint64("event_id", id).Uint64("user_id", u.ID).Msg("event registration")

	return c.Redirect(detailPath(id))
}

// Unregister cancels the registration of the current user.
func (s *Service) Unregister(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	err = controller.Unregister(c.UserContext(), s.db, id, auth.CurrentUser(c).ID)
	if errors.Is(err, controller.ErrNotRegistered) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	if err != nil {
		return err
	}

	return c.Redirect(detailPath(id))
}

// Registrants lists the users registered for the event.
func (s *Service) Registrants(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()

	ev, err := controller.Get(ctx, s.db, id)
	if err != nil {
		return notFound(err)
	}

	regs, err := controller.Registrants(ctx, s.db, id)
	if err != nil {
		return err
	}

	return c.Render(TemplateRegistrants, fiber.Map{
		"Navigation": navigation.Page("Registrants", navigation.SectionEvents, "registrants").
			AddBreadcrumb("Events", Path, false).
			AddBreadcrumb(ev.Title, detailPath(ev.ID), false).
			Current("Registrants", detailPath(ev.ID)+"/registrants"),
		"Event":       ev,
		"Registrants": regs,
	}, handler.BaseLayout)
}
