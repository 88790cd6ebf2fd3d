package poll

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

const (
	// MaxQuestionLength is the maximum number of characters of a question.
	MaxQuestionLength = 500
	// MaxOptionLength is the maximum number of characters of an option.
	MaxOptionLength = 300
	// MinOptions is the minimum number of non-blank options of a poll.
	MinOptions = 2
)

// Engine reads and writes polls through gorm.
type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

// Details is a poll with its options in creation order and every vote cast
// for one of those options.
type Details struct {
	Poll    models.Poll
	Options []models.PollOption
	Votes   []models.PollVote
}

// Tally computes the result of d.
func (d *Details) Tally() Tally {
	return ComputeTally(d.Options, d.Votes)
}

// OptionIDs returns the ids of all options of d.
func (d *Details) OptionIDs() []uint64 {
	ids := make([]uint64, 0, len(d.Options))
	for _, o := range d.Options {
		ids = append(ids, o.ID)
	}

	return ids
}

// Snapshot is the state of a poll right after a vote.
type Snapshot struct {
	Details  *Details
	Tally    Tally
	UserVote *models.PollVote
}

// Voter is a user shown in the "voted by" list of an option.
type Voter struct {
	UserID    uint64 `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// New returns an Engine using db.
func New(db *gorm.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

// WithTx returns a copy of e that runs inside tx.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{db: tx, now: e.now}
}

// Validate trims the question and options and drops blank options.
// It returns the surviving option texts or a *ValidationError.
func Validate(question string, optionTexts []string) ([]string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Err: ErrEmptyQuestion}
	}

	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return nil, &ValidationError{Err: ErrQuestionTooLong}
	}

	options := make([]string, 0, len(optionTexts))

	for _, text := range optionTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if utf8.RuneCountInString(text) > MaxOptionLength {
			return nil, &ValidationError{Err: ErrOptionTooLong}
		}

		options = append(options, text)
	}

	if len(options) < MinOptions {
		return nil, &ValidationError{Err: ErrNotEnoughOptions}
	}

	return options, nil
}

// CreatePoll attaches a new poll to an announcement. The definition is
// validated before anything is written; poll and options are inserted in one
// transaction.
func (e *Engine) CreatePoll(
	ctx context.Context,
	announcementID uint64,
	question string,
	optionTexts []string,
) (*models.Poll, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	options, err := Validate(question, optionTexts)
	if err != nil {
		return nil, err
	}

	p := &models.Poll{
		AnnouncementID: announcementID,
		Question:       strings.TrimSpace(question),
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&models.Announcement{}).Where("id = ?", announcementID).Count(&found).Error; err != nil {
			return pkgerrors.Wrap(err, "lookup announcement")
		}

		if found == 0 {
			return ErrAnnouncementNotFound
		}

		if err := tx.Model(&models.Poll{}).Where("announcement_id = ?", announcementID).Count(&found).Error; err != nil {
			return pkgerrors.Wrap(err, "lookup poll")
		}

		if found > 0 {
			return ErrPollExists
		}

		if err := tx.Create(p).Error; err != nil {
			return pkgerrors.Wrap(err, "insert poll")
		}

		p.Options = make([]models.PollOption, 0, len(options))
		for i, text := range options {
			p.Options = append(p.Options, models.PollOption{PollID: p.ID, OptionText: text, Position: i})
		}

		return pkgerrors.Wrap(tx.Create(&p.Options).Error, "insert poll options")
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// GetPollForAnnouncement returns the poll of an announcement with options and
// votes, or nil if the announcement has no poll.
func (e *Engine) GetPollForAnnouncement(ctx context.Context, announcementID uint64) (*Details, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	var p models.Poll

	res := e.db.WithContext(ctx).Where("announcement_id = ?", announcementID).Limit(1).Find(&p)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "select poll")
	}

	if res.RowsAffected == 0 {
		return nil, nil //nolint:nilnil
	}

	return e.details(ctx, p)
}

// GetPollsForAnnouncements returns the polls of several announcements keyed
// by announcement id, without votes. Used by list views.
func (e *Engine) GetPollsForAnnouncements(ctx context.Context, announcementIDs []uint64) (map[uint64]models.Poll, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	out := make(map[uint64]models.Poll, len(announcementIDs))
	if len(announcementIDs) == 0 {
		return out, nil
	}

	var polls []models.Poll
	if err := e.db.WithContext(ctx).Where("announcement_id IN ?", announcementIDs).Find(&polls).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "select polls")
	}

	for _, p := range polls {
		out[p.AnnouncementID] = p
	}

	return out, nil
}

func (e *Engine) detailsByID(ctx context.Context, pollID uint64) (*Details, error) {
	var p models.Poll
	if err := e.db.WithContext(ctx).First(&p, pollID).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "select poll")
	}

	return e.details(ctx, p)
}

func (e *Engine) details(ctx context.Context, p models.Poll) (*Details, error) {
	d := &Details{Poll: p}

	err := e.db.WithContext(ctx).
		Where("poll_id = ?", p.ID).
		Order("position, id").
		Find(&d.Options).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select poll options")
	}

	d.Poll.Options = d.Options

	ids := d.OptionIDs()
	if len(ids) == 0 {
		return d, nil
	}

	err = e.db.WithContext(ctx).
		Where("poll_option_id IN ?", ids).
		Order("id").
		Find(&d.Votes).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select poll votes")
	}

	return d, nil
}

// GetUserVote returns the vote of userID for any of optionIDs, or nil.
func (e *Engine) GetUserVote(ctx context.Context, optionIDs []uint64, userID uint64) (*models.PollVote, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	if len(optionIDs) == 0 {
		return nil, nil //nolint:nilnil
	}

	var v models.PollVote

	res := e.db.WithContext(ctx).
		Where("poll_option_id IN ? AND user_id = ?", optionIDs, userID).
		Order("id").
		Limit(1).
		Find(&v)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "select user vote")
	}

	if res.RowsAffected == 0 {
		return nil, nil //nolint:nilnil
	}

	return &v, nil
}

// CastVote records the vote of userID for optionID, replacing any earlier
// vote of the user in the same poll. Voting twice for the same option keeps
// a single row.
func (e *Engine) CastVote(ctx context.Context, optionID, userID uint64) (*Snapshot, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	var (
		snap *Snapshot
		kind string
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var opt models.PollOption

		res := tx.Limit(1).Find(&opt, optionID)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "select poll option")
		}

		if res.RowsAffected == 0 {
			return ErrOptionNotFound
		}

		var prev models.PollVote

		res = tx.Where("poll_id = ? AND user_id = ?", opt.PollID, userID).Limit(1).Find(&prev)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "select previous vote")
		}

		switch {
		case res.RowsAffected == 0:
			kind = voteFirst
		case prev.PollOptionID == optionID:
			kind = voteRepeat
		default:
			kind = voteChange
		}

		vote := models.PollVote{
			PollID:       opt.PollID,
			PollOptionID: optionID,
			UserID:       userID,
			CreatedAt:    e.now(),
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"poll_option_id", "created_at"}),
		}).Create(&vote).Error
		if err != nil {
			return pkgerrors.Wrap(err, "upsert vote")
		}

		inTx := e.WithTx(tx)

		details, err := inTx.detailsByID(ctx, opt.PollID)
		if err != nil {
			return err
		}

		userVote, err := inTx.GetUserVote(ctx, details.OptionIDs(), userID)
		if err != nil {
			return err
		}

		snap = &Snapshot{
			Details:  details,
			Tally:    details.Tally(),
			UserVote: userVote,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	votesCast.WithLabelValues(kind).Inc()

	return snap, nil
}

// ListVotersForOption returns the users who voted for optionID in fetch
// order. Votes of deleted users are skipped.
func (e *Engine) ListVotersForOption(ctx context.Context, optionID uint64) ([]Voter, error) {
	if e == nil || e.db == nil {
		return nil, ErrDBNil
	}

	var votes []models.PollVote
	if err := e.db.WithContext(ctx).Where("poll_option_id = ?", optionID).Order("id").Find(&votes).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "select option votes")
	}

	voters := make([]Voter, 0, len(votes))
	if len(votes) == 0 {
		return voters, nil
	}

	userIDs := make([]uint64, 0, len(votes))
	for _, v := range votes {
		userIDs = append(userIDs, v.UserID)
	}

	var users []models.User
	if err := e.db.WithContext(ctx).Select("id", "first_name", "last_name").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "select voters")
	}

	byID := make(map[uint64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, v := range votes {
		u, ok := byID[v.UserID]
		if !ok {
			continue
		}

		voters = append(voters, Voter{UserID: u.ID, FirstName: u.FirstName, LastName: u.LastName})
	}

	return voters, nil
}

// DeleteForAnnouncement removes the poll of an announcement with its
// options and votes. It is a no-op without a poll.
func (e *Engine) DeleteForAnnouncement(ctx context.Context, announcementID uint64) error {
	if e == nil || e.db == nil {
		return ErrDBNil
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Poll

		res := tx.Where("announcement_id = ?", announcementID).Limit(1).Find(&p)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "select poll")
		}

		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("poll_id = ?", p.ID).Delete(&models.PollVote{}).Error; err != nil {
			return pkgerrors.Wrap(err, "delete votes")
		}

		if err := tx.Where("poll_id = ?", p.ID).Delete(&models.PollOption{}).Error; err != nil {
			return pkgerrors.Wrap(err, "delete options")
		}

		return pkgerrors.Wrap(tx.Delete(&p).Error, "delete poll")
	})
}

// IsNotFound reports whether err is one of the engine's not found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOptionNotFound) || errors.Is(err, ErrAnnouncementNotFound)
}
