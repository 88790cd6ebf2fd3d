// Package notification serves the notification inbox and the broadcast form.
package notification

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/barangay"
	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/notification"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

const (
	// Path is the inbox of the current user.
	Path = handler.RootPath + "notifications"
	// SendPath is the broadcast form.
	SendPath = Path + "/send"

	// TemplateInbox lists the notifications of the current user.
	TemplateInbox = "notification/inbox"
	// TemplateSend renders the broadcast form.
	TemplateSend = "notification/send"
)

// Audience values of the send form.
const (
	AudienceAll      = "all"
	AudienceRole     = "role"
	AudienceBarangay = "barangay"
)

// SendForm is the submitted broadcast.
type SendForm struct {
	Audience string `form:"audience" validate:"required,oneof=all role barangay"`
	Role     string `form:"role"     validate:"required_if=Audience role"`
	Barangay string `form:"barangay" validate:"required_if=Audience barangay,max=100"`
	Title    string `form:"title"    validate:"required,max=200"`
	Message  string `form:"message"`
	Link     string `form:"link"     validate:"max=500"`
}

// Service is the notification handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the notification handler.
var Handler = Service{}

// Init registers the notification routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	authenticated := auth.RequireAuthenticated()
	send := auth.Require(rbac.PermSendNotifications)

	app.Get(Path, authenticated, s.Inbox)
	app.Post(Path+"/read-all", authenticated, s.ReadAll)
	app.Get(SendPath, send, s.Compose)
	app.Post(SendPath, send, s.Send)
	app.Post(Path+"/:id/read", authenticated, s.Read)
	app.Post(Path+"/:id/delete", authenticated, s.Delete)
}

func notFound(err error) error {
	if errors.Is(err, controller.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Notification not found")
	}

	return err
}

// Inbox lists the notifications of the current user, with ?unread=true
// only the unread ones.
func (s *Service) Inbox(c *fiber.Ctx) error {
	ctx := c.UserContext()
	u := auth.CurrentUser(c)
	unreadOnly := c.QueryBool("unread", false)

	res, err := controller.Inbox(ctx, s.db, u.ID, unreadOnly, handler.PageParams(c, portal.DefaultPageSize))
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("load inbox failed")
		return err
	}

	unread, err := controller.UnreadCount(ctx, s.db, u.ID)
	if err != nil {
		return err
	}

	return c.Render(TemplateInbox, fiber.Map{
		"Navigation": navigation.Page("Notifications", navigation.SectionNotifications, "inbox").
			Current("Notifications", Path),
		"Notifications": res.Items,
		"Page":          res,
		"Unread":        unread,
		"UnreadOnly":    unreadOnly,
	}, handler.BaseLayout)
}

// Read marks a notification read and follows its link.
func (s *Service) Read(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	n, err := controller.MarkRead(c.UserContext(), s.db, auth.CurrentUser(c).ID, id, time.Now())
	if err != nil {
		return notFound(err)
	}

	if n.Link != "" {
		return c.Redirect(handler.SafeNext(n.Link))
	}

	return c.Redirect(Path)
}

// ReadAll marks every notification of the current user read.
func (s *Service) ReadAll(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)

	n, err := controller.MarkAllRead(c.UserContext(), s.db, u.ID, time.Now())
	if err != nil {
		return err
	}

	log.Debug().Uint64("user_id", u.ID).Int64("count", n).Msg("notifications marked read")

	return c.Redirect(Path)
}

// Delete removes a notification of the current user.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = controller.Delete(c.UserContext(), s.db, auth.CurrentUser(c).ID, id); err != nil {
		return notFound(err)
	}

	return c.Redirect(Path)
}

func (s *Service) renderSend(c *fiber.Ctx, status int, form *SendForm, data fiber.Map) error {
	barangays, err := barangay.Names(c.UserContext(), s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load barangay names")
	}

	if data == nil {
		data = fiber.Map{}
	}

	data["Navigation"] = navigation.Page("Send Notification", navigation.SectionNotifications, "send").
		AddBreadcrumb("Notifications", Path, false).
		Current("Send Notification", SendPath)
	data["Form"] = form
	data["Roles"] = rbac.Roles()
	data["Barangays"] = barangays

	return c.Status(status).Render(TemplateSend, data, handler.BaseLayout)
}

// Compose renders the broadcast form.
func (s *Service) Compose(c *fiber.Ctx) error {
	return s.renderSend(c, fiber.StatusOK, &SendForm{Audience: AudienceAll}, nil)
}

// Send delivers a notification to every active user, one role or one barangay.
func (s *Service) Send(c *fiber.Ctx) error {
	form := new(SendForm)
	if err := c.BodyParser(form); err != nil {
		return s.renderSend(c, fiber.StatusBadRequest, form, fiber.Map{"Error": "Invalid form data"})
	}

	if errs := handler.ValidateForm(form); len(errs) > 0 {
		return s.renderSend(c, fiber.StatusBadRequest, form, fiber.Map{"Error": handler.FormErrorMessage(errs)})
	}

	var audience controller.Audience

	switch form.Audience {
	case AudienceRole:
		role, err := rbac.ParseRole(form.Role)
		if err != nil {
			return s.renderSend(c, fiber.StatusBadRequest, form, fiber.Map{"Error": err.Error()})
		}

		audience.Role = role
	case AudienceBarangay:
		audience.Barangay = form.Barangay
	}

	u := auth.CurrentUser(c)

	n, err := controller.Send(c.UserContext(), s.db, audience, controller.Message{
		Title:   form.Title,
		Message: form.Message,
		Link:    form.Link,
		Data:    map[string]any{"sender_id": u.ID, "audience": form.Audience},
	})
	if errors.Is(err, controller.ErrTitleEmpty) {
		return s.renderSend(c, fiber.StatusBadRequest, form, fiber.Map{"Error": err.Error()})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to send notification")
		return err
	}

	log.Info().Uint64("user_id", u.ID).Str("audience", form.Audience).Int("recipients", n).Msg("notification sent")

	return s.renderSend(c, fiber.StatusOK, &SendForm{Audience: AudienceAll}, fiber.Map{
		"Message": "Notification sent",
		"Sent":    n,
	})
}
