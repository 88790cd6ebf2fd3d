// Package analytics computes the federation wide figures of the dashboard.
package analytics

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Summary holds the dashboard counters.
type Summary struct {
	UsersByRole    map[rbac.Role]int64
	Users          int64
	ActiveUsers    int64
	Barangays      int64
	Announcements  int64
	Polls          int64
	Votes          int64
	UpcomingEvents int64
	Registrations  int64
	Articles       int64
	Documents      int64
	TopPolls       []PollActivity
}

// PollActivity is a poll with the number of votes it received.
type PollActivity struct {
	AnnouncementID uint64
	Question       string
	Votes          int64
}

// topPolls is the number of polls listed in Summary.TopPolls.
const topPolls = 5

// Load collects the summary. Events that have not ended at now count as upcoming.
func Load(ctx context.Context, db *gorm.DB, now time.Time) (*Summary, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	byRole, err := user.CountByRole(ctx, db)
	if err != nil {
		return nil, err
	}

	s := &Summary{UsersByRole: byRole}
	for _, n := range byRole {
		s.Users += n
	}

	tx := db.WithContext(ctx)

	counts := []struct {
		dst   *int64
		query *gorm.DB
		what  string
	}{
		{&s.ActiveUsers, tx.Model(&models.User{}).Where("active = ?", true), "active users"},
		{&s.Barangays, tx.Model(&models.Barangay{}), "barangays"},
		{&s.Announcements, tx.Model(&models.Announcement{}), "announcements"},
		{&s.Polls, tx.Model(&models.Poll{}), "polls"},
		{&s.Votes, tx.Model(&models.PollVote{}), "votes"},
		{
			&s.UpcomingEvents,
			tx.Model(&models.Event{}).Where("((ends_at IS NULL AND starts_at >= ?) OR ends_at >= ?)", now, now),
			"upcoming events",
		},
		{&s.Registrations, tx.Model(&models.EventRegistration{}), "registrations"},
		{&s.Articles, tx.Model(&models.Article{}).Where("published = ?", true), "articles"},
		{&s.Documents, tx.Model(&models.LegislativeDocument{}), "documents"},
	}

	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, pkgerrors.Wrap(err, "count "+c.what)
		}
	}

	if err := tx.Model(&models.Poll{}).
		Select("poll_announcements.announcement_id, poll_announcements.question, COUNT(poll_votes.id) AS votes").
		Joins("LEFT JOIN poll_votes ON poll_votes.poll_id = poll_announcements.id").
		Group("poll_announcements.id, poll_announcements.announcement_id, poll_announcements.question").
		Order("votes DESC, poll_announcements.id DESC").
		Limit(topPolls).
		Scan(&s.TopPolls).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load poll activity")
	}

	return s, nil
}
