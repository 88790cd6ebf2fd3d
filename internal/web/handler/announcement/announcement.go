// Package announcement serves the announcement pages, including poll mode
// announcements and voting.
package announcement

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/announcement"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/excerpt"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/poll"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the base path of announcements.
	Path = handler.RootPath + "announcements"

	// TemplateList lists announcements.
	TemplateList = "announcement/list"
	// TemplateDetail shows one announcement and its poll.
	TemplateDetail = "announcement/detail"
	// TemplateForm creates or edits an announcement.
	TemplateForm = "announcement/form"
	// TemplateVoters lists the voters of one option.
	TemplateVoters = "announcement/voters"
)

// Form is the submitted announcement form. Poll fields are read on create only.
type Form struct {
	Title    string   `form:"title"     validate:"required,max=200"`
	Body     string   `form:"body"`
	Barangay string   `form:"barangay"  validate:"max=100"`
	Pinned   bool     `form:"pinned"`
	PollMode bool     `form:"poll_mode"`
	Question string   `form:"question"`
	Options  []string `form:"options"`
}

// VoteForm is the submitted vote.
type VoteForm struct {
	OptionID uint64 `form:"option_id" validate:"required"`
}

// Row is one announcement of the list view.
type Row struct {
	Announcement models.Announcement
	Excerpt      string
	HasPoll      bool
}

// Service is the announcement handler service.
type Service struct {
	cfg  *config.Config
	db   *gorm.DB
	poll *poll.Engine
}

// Handler is the announcement handler.
var Handler = Service{}

// Init registers the announcement routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.poll = poll.New(db)

	app.Get(Path, s.List)
	app.Get(Path+"/new", auth.Require(rbac.PermCreateAnnouncement), s.New)
	app.Post(Path, auth.Require(rbac.PermCreateAnnouncement), s.Create)
	app.Get(Path+"/:id", s.Detail)
	app.Get(Path+"/:id/edit", auth.Require(rbac.PermEditAnnouncement), s.Edit)
	app.Post(Path+"/:id", auth.Require(rbac.PermEditAnnouncement), s.Update)
	app.Post(Path+"/:id/delete", auth.Require(rbac.PermDeleteAnnouncement), s.Delete)
	app.Post(Path+"/:id/vote", auth.RequireAuthenticated(), s.Vote)
	app.Get(Path+"/:id/options/:option/voters", auth.RequireAuthenticated(), s.Voters)
}

func detailPath(id uint64) string {
	return Path + "/" + strconv.FormatUint(id, 10)
}

func notFound(err error) error {
	if errors.Is(err, controller.ErrNotFound) || poll.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Announcement not found")
	}

	return err
}

// List shows announcements pinned first, then newest first.
func (s *Service) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	settings, err := portal.Load(ctx, s.db, s.cfg.Title)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load portal settings")
	}

	filter := controller.Filter{
		Barangay: c.Query("barangay"),
		Search:   c.Query("search"),
		PollOnly: c.QueryBool("polls", false),
	}

	res, err := controller.List(ctx, s.db, filter, handler.PageParams(c, settings.AnnouncementsPage))
	if err != nil {
		log.Error().Err(err).Msg("list announcements failed")
		return err
	}

	ids := make([]uint64, 0, len(res.Items))
	for _, a := range res.Items {
		ids = append(ids, a.ID)
	}

	polls, err := s.poll.GetPollsForAnnouncements(ctx, ids)
	if err != nil {
		return err
	}

	rows := make([]Row, 0, len(res.Items))
	for _, a := range res.Items {
		_, hasPoll := polls[a.ID]
		rows = append(rows, Row{Announcement: a, Excerpt: excerpt.Make(a.Body, excerpt.DefaultLength), HasPoll: hasPoll})
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": navigation.Page("Announcements", navigation.SectionAnnouncements, "list").
			Current("Announcements", Path),
		"Rows":   rows,
		"Page":   res,
		"Filter": filter,
	}, handler.BaseLayout)
}

// Detail shows an announcement. With a poll it adds the tally, the voters
// per option and the vote of the current user.
func (s *Service) Detail(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()

	a, err := controller.Get(ctx, s.db, id)
	if err != nil {
		return notFound(err)
	}

	data := fiber.Map{
		"Navigation": navigation.Page(a.Title, navigation.SectionAnnouncements, "detail").
			AddBreadcrumb("Announcements", Path, false).
			Current(a.Title, detailPath(a.ID)),
		"Announcement": a,
	}

	details, err := s.poll.GetPollForAnnouncement(ctx, a.ID)
	if err != nil {
		return err
	}

	if details != nil {
		voters := make(map[uint64][]poll.Voter, len(details.Options))

		for _, o := range details.Options {
			v, errVoters := s.poll.ListVotersForOption(ctx, o.ID)
			if errVoters != nil {
				return errVoters
			}

			voters[o.ID] = v
		}

		data["Poll"] = details
		data["Tally"] = details.Tally()
		data["Voters"] = voters

		if u := auth.CurrentUser(c); u != nil {
			vote, errVote := s.poll.GetUserVote(ctx, details.OptionIDs(), u.ID)
			if errVote != nil {
				return errVote
			}

			data["UserVote"] = vote
		}
	}

	return c.Render(TemplateDetail, data, handler.BaseLayout)
}

func (s *Service) renderForm(c *fiber.Ctx, status int, form *Form, a *models.Announcement, msg string) error {
	title := "New Announcement"
	action := Path

	if a != nil {
		title = "Edit Announcement"
		action = detailPath(a.ID)
	}

	barangays, err := barangay.Names(c.UserContext(), s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load barangay names")
	}

	data := fiber.Map{
		"Navigation": navigation.Page(title, navigation.SectionAnnouncements, "form").
			AddBreadcrumb("Announcements", Path, false).
			Current(title, action),
		"Form":         form,
		"Announcement": a,
		"Action":       action,
		"Barangays":    barangays,
		"MinOptions":   poll.MinOptions,
	}

	if msg != "" {
		data["Error"] = msg
	}

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}

// New renders the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	return s.renderForm(c, fiber.StatusOK, &Form{Options: make([]string, poll.MinOptions)}, nil, "")
}

func (s *Service) parseForm(c *fiber.Ctx) (*Form, string) {
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

// Create stores a new announcement, in poll mode together with its poll.
func (s *Service) Create(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)

	form, msg := s.parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, msg)
	}

	in := controller.Input{
		Title:    form.Title,
		Body:     form.Body,
		Barangay: handler.ContentBarangay(u, form.Barangay),
		Pinned:   form.Pinned,
	}

	var pi *controller.PollInput
	if form.PollMode {
		pi = &controller.PollInput{Question: form.Question, Options: form.Options}
	}

	a, err := controller.Create(c.UserContext(), s.db, u.ID, in, pi)

	switch {
	case poll.IsValidationError(err), errors.Is(err, controller.ErrTitleEmpty):
		return s.renderForm(c, fiber.StatusBadRequest, form, nil, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to create announcement")
		return err
	}

	log.Info().Uint64("announcement_id", a.ID).Uint64("user_id", u.ID).Bool("poll", pi != nil).
		Msg("announcement created")

	return c.Redirect(detailPath(a.ID))
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

	form := &Form{Title: a.Title, Body: a.Body, Barangay: a.Barangay, Pinned: a.Pinned}

	return s.renderForm(c, fiber.StatusOK, form, a, "")
}

// Update saves the edit form. The poll of an announcement is never changed.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := controller.Get(c.UserContext(), s.db, id)
	if err != nil {
		return notFound(err)
	}

	form, msg := s.parseForm(c)
	if msg != "" {
		return s.renderForm(c, fiber.StatusBadRequest, form, a, msg)
	}

	_, err = controller.Update(c.UserContext(), s.db, id, controller.Input{
		Title:    form.Title,
		Body:     form.Body,
		Barangay: form.Barangay,
		Pinned:   form.Pinned,
	})
	if err != nil {
		if errors.Is(err, controller.ErrTitleEmpty) {
			return s.renderForm(c, fiber.StatusBadRequest, form, a, err.Error())
		}

		return notFound(err)
	}

	return c.Redirect(detailPath(id))
}

// Delete removes an announcement with its poll and votes.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = controller.Delete(c.UserContext(), s.db, id); err != nil {
		return notFound(err)
	}

	log.Info().Uint64("announcement_id", id).Uint64("user_id", auth.CurrentUser(c).ID).Msg("announcement deleted")

	return c.Redirect(Path)
}

// pollOf returns the poll of announcement id and checks that optionID belongs to it.
func (s *Service) pollOf(c *fiber.Ctx, id, optionID uint64) (*poll.Details, error) {
	details, err := s.poll.GetPollForAnnouncement(c.UserContext(), id)
	if err != nil {
		return nil, err
	}

	if details == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "This announcement has no poll")
	}

	for _, oid := range details.OptionIDs() {
		if oid == optionID {
			return details, nil
		}
	}

	return nil, fiber.NewError(fiber.StatusNotFound, poll.ErrOptionNotFound.Error())
}

// Vote records or replaces the vote of the current user.
func (s *Service) Vote(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	form := new(VoteForm)
	if err = c.BodyParser(form); err != nil || len(handler.ValidateForm(form)) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Please choose an option")
	}

	if _, err = s.pollOf(c, id, form.OptionID); err != nil {
		return err
	}

	u := auth.CurrentUser(c)

	if _, err = s.poll.CastVote(c.UserContext(), form.OptionID, u.ID); err != nil {
		log.Error().Err(err).Uint64("option_id", form.OptionID).Uint64("user_id", u.ID).Msg("vote failed")
		return notFound(err)
	}

	return c.Redirect(detailPath(id) + "#poll")
}

// Voters renders the "voted by" list of one option.
func (s *Service) Voters(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	optionID, err := handler.ParamID(c, "option")
	if err != nil {
		return err
	}

	details, err := s.pollOf(c, id, optionID)
	if err != nil {
		return err
	}

	voters, err := s.poll.ListVotersForOption(c.UserContext(), optionID)
	if err != nil {
		return err
	}

	var option models.PollOption

	for _, o := range details.Options {
		if o.ID == optionID {
			option = o
		}
	}

	return c.Render(TemplateVoters, fiber.Map{
		"Option": option,
		"Voters": voters,
	})
}
