// Package api serves the JSON API under /api/v1. Clients obtain a bearer
// token with their local credentials and use it for the poll and
// permission endpoints.
package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/poll"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
)

const (
	// Prefix is the path prefix of version 1 of the API.
	Prefix = handler.APIPrefix + "v1"

	bearerScheme = "Bearer "
)

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	TOTP     string `json:"totp"     form:"totp"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OptionResult is one option of a PollResult.
type OptionResult struct {
	ID      uint64 `json:"id"`
	Text    string `json:"text"`
	Votes   int    `json:"votes"`
	Percent int    `json:"percent"`
}

// PollResult is a poll with its tally and the vote of the caller.
type PollResult struct {
	ID             uint64         `json:"id"`
	AnnouncementID uint64         `json:"announcementId"`
	Question       string         `json:"question"`
	TotalVotes     int            `json:"totalVotes"`
	Options        []OptionResult `json:"options"`
	MyVote         *uint64        `json:"myVote"`
}

// Permissions describes what the caller may do.
type Permissions struct {
	UserID          uint64            `json:"userId"`
	Role            rbac.Role         `json:"role"`
	Barangay        string            `json:"barangay,omitempty"`
	Permissions     []rbac.Permission `json:"permissions"`
	BarangayWarning bool              `json:"barangayWarning"`
}

// Service is the API handler service.
type Service struct {
	cfg    *config.Config
	db     *gorm.DB
	tokens *auth.TokenIssuer
	local  *auth.LocalProvider
	poll   *poll.Engine
	now    func() time.Time
}

// Handler is the API handler.
var Handler = Service{}

// Init registers the API routes if the API is enabled.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	if !cfg.API.Enabled {
		log.Info().Msg("json api disabled")
		return
	}

	tokens, err := auth.NewTokenIssuer(cfg.API)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create api token issuer")
		return
	}

	s.cfg = cfg
	s.db = db
	s.tokens = tokens
	s.local = auth.NewLocalProvider(db)
	s.poll = poll.New(db)
	s.now = time.Now

	origins := cfg.API.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	v1 := app.Group(Prefix, cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	v1.Post("/token", s.Token)
	v1.Get("/me/permissions", s.Bearer, s.MyPermissions)
	v1.Get("/announcements/:id/poll", s.Bearer, s.Poll)
	v1.Post("/poll-options/:id/vote", s.Bearer, s.Vote)
	v1.Get("/poll-options/:id/voters", s.Bearer, s.Voters)

	log.Info().Str("prefix", Prefix).Msg("json api enabled")
}

// Token exchanges local credentials for a bearer token.
func (s *Service) Token(c *fiber.Ctx) error {
	req := new(TokenRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if errs := handler.ValidateForm(req); len(errs) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, handler.FormErrorMessage(errs))
	}

	u, err := s.local.Authenticate(c.UserContext(), strings.TrimSpace(req.Username), req.Password)

	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		log.Info().Str("username", req.Username).Msg("api token refused")
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case err != nil:
		return err
	}

	if u.TOTPEnabled {
		if errTOTP := auth.ValidateTOTP(u.TOTPSecret, req.TOTP, s.now()); errTOTP != nil {
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidTOTP.Error())
		}
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", u.ID).Time("expires_at", exp).Msg("api token issued")

	return c.JSON(TokenResponse{Token: token, TokenType: strings.TrimSpace(bearerScheme), ExpiresAt: exp})
}

// Bearer resolves the Authorization header to an active user.
func (s *Service) Bearer(c *fiber.Ctx) error {
	raw := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(raw, bearerScheme) {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing bearer token")
	}

	claims, err := s.tokens.Parse(strings.TrimSpace(strings.TrimPrefix(raw, bearerScheme)))
	if err != nil {
		log.Debug().Err(err).Msg("rejected api token")
		return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error())
	}

	id, err := claims.UserID()
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error())
	}

	u, err := user.Get(c.UserContext(), s.db, id)

	switch {
	case errors.Is(err, user.ErrNotFound):
		return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error())
	case err != nil:
		return err
	case !u.Active:
		return fiber.NewError(fiber.StatusForbidden, auth.ErrUserAccountDisabled.Error())
	}

	auth.SetCurrentUser(c, u)

	return c.Next()
}

// MyPermissions returns the role and permissions of the caller.
func (s *Service) MyPermissions(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)

	return c.JSON(Permissions{
		UserID:          u.ID,
		Role:            u.Role,
		Barangay:        u.Barangay,
		Permissions:     rbac.PermissionsFor(u.Role),
		BarangayWarning: rbac.NeedsBarangayWarning(u),
	})
}

// Poll returns the poll of an announcement.
func (s *Service) Poll(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	details, err := s.poll.GetPollForAnnouncement(c.UserContext(), id)
	if err != nil {
		return err
	}

	if details == nil {
		return fiber.NewError(fiber.StatusNotFound, "This announcement has no poll")
	}

	vote, err := s.poll.GetUserVote(c.UserContext(), details.OptionIDs(), auth.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(result(details, details.Tally(), vote))
}

// Vote records the vote of the caller and returns the new state of the poll.
func (s *Service) Vote(c *fiber.Ctx) error {
	optionID, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	u := auth.CurrentUser(c)

	snap, err := s.poll.CastVote(c.UserContext(), optionID, u.ID)
	if errors.Is(err, poll.ErrOptionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if err != nil {
		log.Error().Err(err).Uint64("option_id", optionID).Uint64("user_id", u.ID).Msg("api vote failed")
		return err
	}

	return c.JSON(result(snap.Details, snap.Tally, snap.UserVote))
}

// Voters returns the users who chose an option.
func (s *Service) Voters(c *fiber.Ctx) error {
	optionID, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	var n int64
	if err = s.db.WithContext(c.UserContext()).Model(&models.PollOption{}).Where("id = ?", optionID).Count(&n).Error; err != nil {
		return err
	}

	if n == 0 {
		return fiber.NewError(fiber.StatusNotFound, poll.ErrOptionNotFound.Error())
	}

	voters, err := s.poll.ListVotersForOption(c.UserContext(), optionID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"optionId": optionID, "voters": voters})
}

func result(d *poll.Details, t poll.Tally, vote *models.PollVote) PollResult {
	r := PollResult{
		ID:             d.Poll.ID,
		AnnouncementID: d.Poll.AnnouncementID,
		Question:       d.Poll.Question,
		TotalVotes:     t.Total,
		Options:        make([]OptionResult, 0, len(t.Options)),
	}

	for _, o := range t.Options {
		r.Options = append(r.Options, OptionResult{
			ID:      o.Option.ID,
			Text:    o.Option.OptionText,
			Votes:   o.Count,
			Percent: o.Percent,
		})
	}

	if vote != nil {
		optionID := vote.PollOptionID
		r.MyVote = &optionID
	}

	return r
}
