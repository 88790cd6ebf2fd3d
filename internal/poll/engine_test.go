package poll_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	database "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/poll"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DB{GormEngine: config.EngineSQLite, LogLevel: "silent"})
	require.NoError(t, err, "failed to create test database")
	require.NoError(t, database.Migrate(db), "failed to migrate test database")

	return db
}

func createUser(t *testing.T, db *gorm.DB, username, first, last string) *models.User {
	t.Helper()

	u := &models.User{
		Active:    true,
		Username:  username,
		Email:     username + "@sk.example",
		FirstName: first,
		LastName:  last,
		Role:      "user",
	}
	require.NoError(t, db.Create(u).Error)

	return u
}

func createAnnouncement(t *testing.T, db *gorm.DB, title string) *models.Announcement {
	t.Helper()

	a := &models.Announcement{Title: title, Body: "<p>" + title + "</p>"}
	require.NoError(t, db.Create(a).Error)

	return a
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)

	return n
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		question string
		options  []string
		want     []string
		wantErr  error
	}{
		{name: "two options", question: "Q?", options: []string{"A", "B"}, want: []string{"A", "B"}},
		{name: "trims and drops blanks", question: "  Q?  ", options: []string{" A ", "", "   ", "B"}, want: []string{"A", "B"}},
		{name: "one option left", question: "Q?", options: []string{"A", ""}, wantErr: poll.ErrNotEnoughOptions},
		{name: "no options", question: "Q?", wantErr: poll.ErrNotEnoughOptions},
		{name: "blank question", question: " ", options: []string{"A", "B"}, wantErr: poll.ErrEmptyQuestion},
		{
			name:     "option too long",
			question: "Q?",
			options:  []string{"A", string(make([]rune, poll.MaxOptionLength+1))},
			wantErr:  poll.ErrOptionTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := poll.Validate(tt.question, tt.options)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, poll.IsValidationError(err))
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreatePoll(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	t.Run("one surviving option writes nothing", func(t *testing.T) {
		a := createAnnouncement(t, db, "Clean-up drive")

		p, err := eng.CreatePoll(ctx, a.ID, "Q?", []string{"A", ""})
		require.ErrorIs(t, err, poll.ErrNotEnoughOptions)
		assert.Nil(t, p)
		assert.Equal(t, int64(0), countRows(t, db, &models.Poll{}))
		assert.Equal(t, int64(0), countRows(t, db, &models.PollOption{}))
	})

	t.Run("two options", func(t *testing.T) {
		a := createAnnouncement(t, db, "Sports fest")

		p, err := eng.CreatePoll(ctx, a.ID, "Q?", []string{"A", "B"})
		require.NoError(t, err)
		require.NotZero(t, p.ID)
		assert.Equal(t, a.ID, p.AnnouncementID)
		require.Len(t, p.Options, 2)
		assert.Equal(t, "A", p.Options[0].OptionText)
		assert.Equal(t, "B", p.Options[1].OptionText)

		var rows []models.PollOption
		require.NoError(t, db.Where("poll_id = ?", p.ID).Find(&rows).Error)
		assert.Len(t, rows, 2)
	})

	t.Run("second poll rejected", func(t *testing.T) {
		a := createAnnouncement(t, db, "Budget hearing")

		_, err := eng.CreatePoll(ctx, a.ID, "First?", []string{"A", "B"})
		require.NoError(t, err)

		_, err = eng.CreatePoll(ctx, a.ID, "Second?", []string{"C", "D"})
		require.ErrorIs(t, err, poll.ErrPollExists)
	})

	t.Run("unknown announcement", func(t *testing.T) {
		_, err := eng.CreatePoll(ctx, 9999, "Q?", []string{"A", "B"})
		require.ErrorIs(t, err, poll.ErrAnnouncementNotFound)
		assert.True(t, poll.IsNotFound(err))
	})

	t.Run("inside caller transaction", func(t *testing.T) {
		before := countRows(t, db, &models.Poll{})

		err := db.Transaction(func(tx *gorm.DB) error {
			a := &models.Announcement{Title: "Rolled back"}
			if err := tx.Create(a).Error; err != nil {
				return err
			}

			if _, err := eng.WithTx(tx).CreatePoll(ctx, a.ID, "Q?", []string{"A", "B"}); err != nil {
				return err
			}

			return fmt.Errorf("abort") //nolint:err113
		})
		require.Error(t, err)
		assert.Equal(t, before, countRows(t, db, &models.Poll{}))
	})
}

func TestGetPollForAnnouncement(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	plain := createAnnouncement(t, db, "No poll here")

	d, err := eng.GetPollForAnnouncement(ctx, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, d)

	a := createAnnouncement(t, db, "Venue")
	p, err := eng.CreatePoll(ctx, a.ID, "Where?", []string{"Covered court", "Plaza", "Hall"})
	require.NoError(t, err)

	u := createUser(t, db, "maria", "Maria", "Santos")
	_, err = eng.CastVote(ctx, p.Options[1].ID, u.ID)
	require.NoError(t, err)

	d, err = eng.GetPollForAnnouncement(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Where?", d.Poll.Question)
	require.Len(t, d.Options, 3)
	assert.Equal(t, []string{"Covered court", "Plaza", "Hall"}, []string{
		d.Options[0].OptionText, d.Options[1].OptionText, d.Options[2].OptionText,
	})
	require.Len(t, d.Votes, 1)
	assert.Equal(t, p.Options[1].ID, d.Votes[0].PollOptionID)

	polls, err := eng.GetPollsForAnnouncements(ctx, []uint64{plain.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, polls, 1)
	assert.Equal(t, p.ID, polls[a.ID].ID)
}

func TestGetUserVote(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	v, err := eng.GetUserVote(ctx, nil, 1)
	require.NoError(t, err)
	assert.Nil(t, v)

	a := createAnnouncement(t, db, "Curfew")
	p, err := eng.CreatePoll(ctx, a.ID, "Agree?", []string{"Yes", "No"})
	require.NoError(t, err)

	u := createUser(t, db, "jose", "Jose", "Rizal")

	v, err = eng.GetUserVote(ctx, []uint64{p.Options[0].ID, p.Options[1].ID}, u.ID)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = eng.CastVote(ctx, p.Options[0].ID, u.ID)
	require.NoError(t, err)

	v, err = eng.GetUserVote(ctx, []uint64{p.Options[0].ID, p.Options[1].ID}, u.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, p.Options[0].ID, v.PollOptionID)
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown option", func(t *testing.T) {
		eng := poll.New(setupTestDB(t))

		_, err := eng.CastVote(ctx, 4242, 1)
		require.ErrorIs(t, err, poll.ErrOptionNotFound)
	})

	t.Run("change vote keeps one row", func(t *testing.T) {
		db := setupTestDB(t)
		eng := poll.New(db)

		a := createAnnouncement(t, db, "Zumba")
		p, err := eng.CreatePoll(ctx, a.ID, "Time?", []string{"Morning", "Evening"})
		require.NoError(t, err)

		u := createUser(t, db, "ana", "Ana", "Cruz")

		_, err = eng.CastVote(ctx, p.Options[0].ID, u.ID)
		require.NoError(t, err)

		snap, err := eng.CastVote(ctx, p.Options[1].ID, u.ID)
		require.NoError(t, err)

		var rows []models.PollVote
		require.NoError(t, db.Where("poll_id = ? AND user_id = ?", p.ID, u.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.Equal(t, p.Options[1].ID, rows[0].PollOptionID)

		require.NotNil(t, snap.UserVote)
		assert.Equal(t, p.Options[1].ID, snap.UserVote.PollOptionID)
		assert.Equal(t, 1, snap.Tally.Total)
		assert.Equal(t, 0, snap.Tally.Count(p.Options[0].ID))
		assert.Equal(t, 1, snap.Tally.Count(p.Options[1].ID))
	})

	t.Run("same option twice keeps one row", func(t *testing.T) {
		db := setupTestDB(t)
		eng := poll.New(db)

		a := createAnnouncement(t, db, "Tree planting")
		p, err := eng.CreatePoll(ctx, a.ID, "Join?", []string{"Yes", "No"})
		require.NoError(t, err)

		u := createUser(t, db, "ben", "Ben", "Reyes")

		for range 2 {
			_, err = eng.CastVote(ctx, p.Options[0].ID, u.ID)
			require.NoError(t, err)
		}

		var rows []models.PollVote
		require.NoError(t, db.Where("user_id = ?", u.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.Equal(t, p.Options[0].ID, rows[0].PollOptionID)
	})

	t.Run("concurrent revotes keep one row", func(t *testing.T) {
		db := setupTestDB(t)
		eng := poll.New(db)

		a := createAnnouncement(t, db, "Basketball league")
		p, err := eng.CreatePoll(ctx, a.ID, "Court?", []string{"North", "South", "East"})
		require.NoError(t, err)

		u := createUser(t, db, "carlo", "Carlo", "Garcia")

		var wg sync.WaitGroup

		errs := make(chan error, 12)

		for i := range 12 {
			wg.Add(1)

			go func(opt uint64) {
				defer wg.Done()

				_, err := eng.CastVote(ctx, opt, u.ID)
				errs <- err
			}(p.Options[i%3].ID)
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, int64(1), countRows(t, db, &models.PollVote{}))
	})

	t.Run("votes are per poll", func(t *testing.T) {
		db := setupTestDB(t)
		eng := poll.New(db)

		p1, err := eng.CreatePoll(ctx, createAnnouncement(t, db, "One").ID, "Q1?", []string{"A", "B"})
		require.NoError(t, err)
		p2, err := eng.CreatePoll(ctx, createAnnouncement(t, db, "Two").ID, "Q2?", []string{"C", "D"})
		require.NoError(t, err)

		u := createUser(t, db, "dina", "Dina", "Lopez")

		_, err = eng.CastVote(ctx, p1.Options[0].ID, u.ID)
		require.NoError(t, err)
		_, err = eng.CastVote(ctx, p2.Options[1].ID, u.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(2), countRows(t, db, &models.PollVote{}))
	})
}

func TestListVotersForOption(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	a := createAnnouncement(t, db, "Seminar")
	p, err := eng.CreatePoll(ctx, a.ID, "Topic?", []string{"Health", "Jobs"})
	require.NoError(t, err)

	voters, err := eng.ListVotersForOption(ctx, p.Options[0].ID)
	require.NoError(t, err)
	assert.Empty(t, voters)

	u1 := createUser(t, db, "elena", "Elena", "Bautista")
	gone := createUser(t, db, "felix", "Felix", "Aquino")
	u2 := createUser(t, db, "gina", "Gina", "Mendoza")

	for _, u := range []*models.User{u1, gone, u2} {
		_, err = eng.CastVote(ctx, p.Options[0].ID, u.ID)
		require.NoError(t, err)
	}

	require.NoError(t, db.Delete(&models.User{}, gone.ID).Error)

	voters, err = eng.ListVotersForOption(ctx, p.Options[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []poll.Voter{
		{UserID: u1.ID, FirstName: "Elena", LastName: "Bautista"},
		{UserID: u2.ID, FirstName: "Gina", LastName: "Mendoza"},
	}, voters)
}

func TestDeleteForAnnouncement(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	a := createAnnouncement(t, db, "Outreach")
	p, err := eng.CreatePoll(ctx, a.ID, "Date?", []string{"May", "June"})
	require.NoError(t, err)

	u := createUser(t, db, "hugo", "Hugo", "Ramos")
	_, err = eng.CastVote(ctx, p.Options[0].ID, u.ID)
	require.NoError(t, err)

	require.NoError(t, eng.DeleteForAnnouncement(ctx, a.ID))
	require.NoError(t, eng.DeleteForAnnouncement(ctx, a.ID))

	assert.Equal(t, int64(0), countRows(t, db, &models.Poll{}))
	assert.Equal(t, int64(0), countRows(t, db, &models.PollOption{}))
	assert.Equal(t, int64(0), countRows(t, db, &models.PollVote{}))
}

func TestTownHallScenario(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	eng := poll.New(db)

	a := createAnnouncement(t, db, "Town Hall")
	p, err := eng.CreatePoll(ctx, a.ID, "Which day works?", []string{"Saturday", "Sunday"})
	require.NoError(t, err)

	saturday, sunday := p.Options[0], p.Options[1]

	u1 := createUser(t, db, "u1", "Una", "Dela Cruz")
	u2 := createUser(t, db, "u2", "Dos", "Villanueva")

	_, err = eng.CastVote(ctx, saturday.ID, u1.ID)
	require.NoError(t, err)
	_, err = eng.CastVote(ctx, sunday.ID, u2.ID)
	require.NoError(t, err)
	_, err = eng.CastVote(ctx, sunday.ID, u1.ID)
	require.NoError(t, err)

	d, err := eng.GetPollForAnnouncement(ctx, a.ID)
	require.NoError(t, err)

	tally := d.Tally()
	require.Len(t, tally.Options, 2)
	assert.Equal(t, "Saturday", tally.Options[0].Option.OptionText)
	assert.Equal(t, 0, tally.Options[0].Count)
	assert.Equal(t, 0, tally.Options[0].Percent)
	assert.Equal(t, "Sunday", tally.Options[1].Option.OptionText)
	assert.Equal(t, 2, tally.Options[1].Count)
	assert.Equal(t, 100, tally.Options[1].Percent)

	v, err := eng.GetUserVote(ctx, d.OptionIDs(), u1.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, sunday.ID, v.PollOptionID)

	voters, err := eng.ListVotersForOption(ctx, sunday.ID)
	require.NoError(t, err)

	ids := make([]uint64, 0, len(voters))
	for _, voter := range voters {
		ids = append(ids, voter.UserID)
	}

	assert.ElementsMatch(t, []uint64{u1.ID, u2.ID}, ids)
}
