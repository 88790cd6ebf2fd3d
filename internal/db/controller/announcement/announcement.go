// Package announcement provides the persistence operations of announcements
// and their optional poll.
package announcement

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/poll"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when an announcement does not exist.
	ErrNotFound = errors.New("announcement not found")
	// ErrTitleEmpty is returned when an announcement has no title.
	ErrTitleEmpty = errors.New("announcement title can not be empty")
)

// Input holds the editable fields of an announcement.
type Input struct {
	Title    string
	Body     string
	Barangay string
	Pinned   bool
}

// PollInput is the poll attached at creation time.
type PollInput struct {
	Question string
	Options  []string
}

// Filter narrows List.
type Filter struct {
	Barangay string // exact, case-insensitive
	Search   string // title contains
	PollOnly bool
}

// List returns announcements pinned first, then newest first.
func List(ctx context.Context, db *gorm.DB, f Filter, p paging.Params) (paging.Result[models.Announcement], error) {
	if db == nil {
		return paging.Result[models.Announcement]{}, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.Announcement{})

	if f.Barangay != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(strings.TrimSpace(f.Barangay)))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	if f.PollOnly {
		q = q.Where("id IN (?)", db.Model(&models.Poll{}).Select("announcement_id"))
	}

	res, err := paging.Find[models.Announcement](q.Order("pinned DESC, created_at DESC, id DESC"), p, "Author")

	return res, pkgerrors.Wrap(err, "list announcements")
}

// Get returns one announcement with its author.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.Announcement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var a models.Announcement

	err := db.WithContext(ctx).Preload("Author").First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get announcement")
	}

	return &a, nil
}

// Create inserts an announcement. With a non-nil pi the poll is validated
// first and created in the same transaction, so either both exist or neither.
func Create(ctx context.Context, db *gorm.DB, authorID uint64, in Input, pi *PollInput) (*models.Announcement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	a, err := build(in)
	if err != nil {
		return nil, err
	}

	if authorID != 0 {
		a.AuthorID = &authorID
	}

	if pi != nil {
		if _, err := poll.Validate(pi.Question, pi.Options); err != nil {
			return nil, err
		}
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return pkgerrors.Wrap(err, "insert announcement")
		}

		if pi == nil {
			return nil
		}

		p, err := poll.New(tx).CreatePoll(ctx, a.ID, pi.Question, pi.Options)
		if err != nil {
			return err
		}

		a.Poll = p

		return nil
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Update replaces the editable fields. The poll never changes.
func Update(ctx context.Context, db *gorm.DB, id uint64, in Input) (*models.Announcement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	upd, err := build(in)
	if err != nil {
		return nil, err
	}

	if _, err := Get(ctx, db, id); err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&models.Announcement{ID: id}).
		Select("title", "body", "barangay", "pinned").
		Updates(upd).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "update announcement")
	}

	return Get(ctx, db, id)
}

// Delete removes an announcement with its poll, options and votes.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := poll.New(tx).DeleteForAnnouncement(ctx, id); err != nil {
			return err
		}

		res := tx.Delete(&models.Announcement{}, id)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "delete announcement")
		}

		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// Count returns the number of announcements.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var n int64
	err := db.WithContext(ctx).Model(&models.Announcement{}).Count(&n).Error

	return n, pkgerrors.Wrap(err, "count announcements")
}

func build(in Input) (*models.Announcement, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleEmpty
	}

	return &models.Announcement{
		Title:    title,
		Body:     in.Body,
		Barangay: strings.TrimSpace(in.Barangay),
		Pinned:   in.Pinned,
	}, nil
}
