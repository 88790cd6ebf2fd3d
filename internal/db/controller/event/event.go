// Package event provides the persistence operations of events and event
// registrations.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when an event does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrTitleEmpty is returned when an event has no title.
	ErrTitleEmpty = errors.New("event title can not be empty")
	// ErrStartMissing is returned when an event has no start time.
	ErrStartMissing = errors.New("event start time is required")
	// ErrEndBeforeStart is returned when an event ends before it starts.
	ErrEndBeforeStart = errors.New("event can not end before it starts")
	// ErrNegativeCapacity is returned for a capacity below zero.
	ErrNegativeCapacity = errors.New("event capacity can not be negative")
	// ErrEventFull is returned when every seat of an event is taken.
	ErrEventFull = errors.New("event is fully booked")
	// ErrAlreadyRegistered is returned when the user is already registered.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrNotRegistered is returned when cancelling a registration that does not exist.
	ErrNotRegistered = errors.New("not registered for this event")
	// ErrEventOver is returned when registering for an event that already ended.
	ErrEventOver = errors.New("event is over")
)

// When selects upcoming or past events in List.
type When int

const (
	// All lists every event, newest start first.
	All When = iota
	// Upcoming lists events that have not ended, soonest first.
	Upcoming
	// Past lists events that ended, most recent first.
	Past
)

// Input holds the editable fields of an event.
type Input struct {
	Title       string
	Description string
	Location    string
	Barangay    string
	StartsAt    time.Time
	EndsAt      *time.Time
	Capacity    int
	Tags        []string
}

// Filter narrows List.
type Filter struct {
	When     When
	Barangay string
	Now      time.Time // reference time, zero means time.Now
}

// Registrant is a registered user with the time of registration.
type Registrant struct {
	UserID       uint64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	RegisteredAt time.Time
}

// List returns one page of events.
func List(ctx context.Context, db *gorm.DB, f Filter, p paging.Params) (paging.Result[models.Event], error) {
	if db == nil {
		return paging.Result[models.Event]{}, ErrDBNil
	}

	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	q := db.WithContext(ctx).Model(&models.Event{})

	if f.Barangay != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(strings.TrimSpace(f.Barangay)))
	}

	switch f.When {
	case Upcoming:
		q = q.Where("((ends_at IS NULL AND starts_at >= ?) OR ends_at >= ?)", now, now).Order("starts_at, id")
	case Past:
		q = q.Where("((ends_at IS NULL AND starts_at < ?) OR ends_at < ?)", now, now).Order("starts_at DESC, id DESC")
	default:
		q = q.Order("starts_at DESC, id DESC")
	}

	res, err := paging.Find[models.Event](q, p)

	return res, pkgerrors.Wrap(err, "list events")
}

// Get returns one event.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.Event, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ev models.Event

	err := db.WithContext(ctx).First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get event")
	}

	return &ev, nil
}

// Create inserts an event.
func Create(ctx context.Context, db *gorm.DB, createdBy uint64, in Input) (*models.Event, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	ev, err := build(in)
	if err != nil {
		return nil, err
	}

	if createdBy != 0 {
		ev.CreatedByID = &createdBy
	}

	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "insert event")
	}

	return ev, nil
}

// Update replaces the editable fields of an event.
func Update(ctx context.Context, db *gorm.DB, id uint64, in Input) (*models.Event, error) {
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

	err = db.WithContext(ctx).Model(&models.Event{ID: id}).
		Select("title", "description", "location", "barangay", "starts_at", "ends_at", "capacity", "tags").
		Updates(upd).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "update event")
	}

	return Get(ctx, db, id)
}

// Delete removes an event with its registrations.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventRegistration{}).Error; err != nil {
			return pkgerrors.Wrap(err, "delete registrations")
		}

		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "delete event")
		}

		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// Register signs userID up for an event. The event row is locked while the
// seats are counted so concurrent sign ups can not overbook it.
func Register(ctx context.Context, db *gorm.DB, eventID, userID uint64, now time.Time) (*models.EventRegistration, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	reg := &models.EventRegistration{EventID: eventID, UserID: userID}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev models.Event

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, eventID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		if err != nil {
			return pkgerrors.Wrap(err, "lock event")
		}

		if Ended(&ev, now) {
			return ErrEventOver
		}

		var n int64
		if err := tx.Model(&models.EventRegistration{}).Where("event_id = ? AND user_id = ?", eventID, userID).Count(&n).Error; err != nil {
			return pkgerrors.Wrap(err, "check registration")
		}

		if n > 0 {
			return ErrAlreadyRegistered
		}

		if ev.Capacity > 0 {
			if err := tx.Model(&models.EventRegistration{}).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
				return pkgerrors.Wrap(err, "count registrations")
			}

			if n >= int64(ev.Capacity) {
				return ErrEventFull
			}
		}

		return pkgerrors.Wrap(tx.Create(reg).Error, "insert registration")
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// Unregister cancels the registration of userID.
func Unregister(ctx context.Context, db *gorm.DB, eventID, userID uint64) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.EventRegistration{})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete registration")
	}

	if res.RowsAffected == 0 {
		return ErrNotRegistered
	}

	return nil
}

// IsRegistered reports whether userID is registered for eventID.
func IsRegistered(ctx context.Context, db *gorm.DB, eventID, userID uint64) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var n int64
	err := db.WithContext(ctx).Model(&models.EventRegistration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error

	return n > 0, pkgerrors.Wrap(err, "check registration")
}

// RegistrationCounts returns the number of registrations per event id.
func RegistrationCounts(ctx context.Context, db *gorm.DB, eventIDs []uint64) (map[uint64]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	out := make(map[uint64]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		EventID uint64
		N       int64
	}

	err := db.WithContext(ctx).Model(&models.EventRegistration{}).
		Select("event_id, COUNT(*) AS n").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count registrations")
	}

	for _, r := range rows {
		out[r.EventID] = r.N
	}

	return out, nil
}

// Registrants lists the users registered for an event in registration order.
// Registrations of deleted users are skipped.
func Registrants(ctx context.Context, db *gorm.DB, eventID uint64) ([]Registrant, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var regs []models.EventRegistration
	if err := db.WithContext(ctx).Preload("User").Where("event_id = ?", eventID).Order("created_at, id").Find(&regs).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list registrants")
	}

	out := make([]Registrant, 0, len(regs))

	for _, r := range regs {
		if r.User == nil {
			continue
		}

		out = append(out, Registrant{
			UserID:       r.UserID,
			Username:     r.User.Username,
			FirstName:    r.User.FirstName,
			LastName:     r.User.LastName,
			Email:        r.User.Email,
			RegisteredAt: r.CreatedAt,
		})
	}

	return out, nil
}

// Ended reports whether ev is over at now. Events without an end are over
// once they started.
func Ended(ev *models.Event, now time.Time) bool {
	if ev.EndsAt != nil {
		return ev.EndsAt.Before(now)
	}

	return ev.StartsAt.Before(now)
}

// Tags decodes the tag list of ev.
func Tags(ev *models.Event) []string {
	var tags []string
	if len(ev.Tags) == 0 {
		return tags
	}

	_ = json.Unmarshal(ev.Tags, &tags)

	return tags
}

func build(in Input) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleEmpty
	}

	if in.StartsAt.IsZero() {
		return nil, ErrStartMissing
	}

	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return nil, ErrEndBeforeStart
	}

	if in.Capacity < 0 {
		return nil, ErrNegativeCapacity
	}

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, strings.ToLower(t))
		}
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode tags")
	}

	return &models.Event{
		Title:       title,
		Description: in.Description,
		Location:    strings.TrimSpace(in.Location),
		Barangay:    strings.TrimSpace(in.Barangay),
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		Capacity:    in.Capacity,
		Tags:        datatypes.JSON(raw),
	}, nil
}
