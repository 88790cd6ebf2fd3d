package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	database "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/analytics"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/announcement"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/poll"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	db, err := database.Open(config.DB{GormEngine: config.EngineSQLite, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	admin := models.User{Username: "admin", Email: "admin@sk.example", Role: rbac.RoleAdmin, Active: true}
	youth := models.User{Username: "juan", Email: "juan@sk.example", Role: rbac.RoleUser, Active: true}
	idle := models.User{Username: "idle", Email: "idle@sk.example", Role: rbac.RoleUser}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&youth).Error)
	require.NoError(t, db.Create(&idle).Error)
	require.NoError(t, db.Model(&idle).Update("active", false).Error)

	busy, err := announcement.Create(ctx, db, admin.ID, announcement.Input{Title: "Venue"},
		&announcement.PollInput{Question: "Where?", Options: []string{"Gym", "Plaza"}})
	require.NoError(t, err)
	_, err = announcement.Create(ctx, db, admin.ID, announcement.Input{Title: "Date"},
		&announcement.PollInput{Question: "When?", Options: []string{"Sat", "Sun"}})
	require.NoError(t, err)
	_, err = announcement.Create(ctx, db, admin.ID, announcement.Input{Title: "Plain notice"}, nil)
	require.NoError(t, err)

	engine := poll.New(db)
	details, err := engine.GetPollForAnnouncement(ctx, busy.ID)
	require.NoError(t, err)
	_, err = engine.CastVote(ctx, details.Options[0].ID, admin.ID)
	require.NoError(t, err)
	_, err = engine.CastVote(ctx, details.Options[1].ID, youth.ID)
	require.NoError(t, err)

	ended := now.Add(-time.Hour)
	require.NoError(t, db.Create(&models.Event{Title: "Past", StartsAt: now.Add(-2 * time.Hour), EndsAt: &ended}).Error)
	upcoming := models.Event{Title: "Clean-up drive", StartsAt: now.Add(24 * time.Hour)}
	require.NoError(t, db.Create(&upcoming).Error)
	require.NoError(t, db.Create(&models.EventRegistration{EventID: upcoming.ID, UserID: youth.ID}).Error)

	require.NoError(t, db.Create(&models.Article{Slug: "a", Title: "A", Published: true}).Error)
	require.NoError(t, db.Create(&models.Article{Slug: "b", Title: "B"}).Error)
	require.NoError(t, db.Create(&models.LegislativeDocument{
		Kind: models.DocumentKindOrdinance, Number: "2025-001", Title: "Curfew", Year: 2025,
	}).Error)

	s, err := analytics.Load(ctx, db, now)
	require.NoError(t, err)

	assert.Equal(t, int64(3), s.Users)
	assert.Equal(t, int64(2), s.ActiveUsers)
	assert.Equal(t, int64(1), s.UsersByRole[rbac.RoleAdmin])
	assert.Equal(t, int64(2), s.UsersByRole[rbac.RoleUser])
	assert.Equal(t, int64(0), s.UsersByRole[rbac.RoleModerator])
	assert.Equal(t, int64(3), s.Announcements)
	assert.Equal(t, int64(2), s.Polls)
	assert.Equal(t, int64(2), s.Votes)
	assert.Equal(t, int64(1), s.UpcomingEvents)
	assert.Equal(t, int64(1), s.Registrations)
	assert.Equal(t, int64(1), s.Articles)
	assert.Equal(t, int64(1), s.Documents)

	require.Len(t, s.TopPolls, 2)
	assert.Equal(t, busy.ID, s.TopPolls[0].AnnouncementID)
	assert.Equal(t, "Where?", s.TopPolls[0].Question)
	assert.Equal(t, int64(2), s.TopPolls[0].Votes)
	assert.Equal(t, int64(0), s.TopPolls[1].Votes)
}

func TestLoadNilDB(t *testing.T) {
	_, err := analytics.Load(context.Background(), nil, time.Now())
	assert.ErrorIs(t, err, analytics.ErrDBNil)
}
