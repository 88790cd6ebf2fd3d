package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	database "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DB{GormEngine: config.EngineSQLite, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func mustCreate(t *testing.T, db *gorm.DB, in user.Input) *models.User {
	t.Helper()

	u, err := user.Create(context.Background(), db, in)
	require.NoError(t, err)

	return u
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	u := mustCreate(t, db, user.Input{Username: "juan", Email: "juan@example.org", Password: "secret"})
	assert.Equal(t, rbac.RoleUser, u.Role)
	assert.Equal(t, models.AuthSourceLocal, u.AuthSource)
	assert.True(t, u.Active)
	assert.True(t, u.VerifyPassword("secret"))

	tests := []struct {
		name string
		in   user.Input
		err  error
	}{
		{name: "duplicate username", in: user.Input{Username: "juan", Email: "other@example.org"}, err: user.ErrUsernameTaken},
		{name: "duplicate email", in: user.Input{Username: "pedro", Email: "juan@example.org"}, err: user.ErrUsernameTaken},
		{name: "missing email", in: user.Input{Username: "pedro"}, err: user.ErrInvalidInput},
		{name: "unknown role", in: user.Input{Username: "pedro", Email: "p@example.org", Role: "root"}, err: rbac.ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := user.Create(ctx, db, tt.in)
			require.ErrorIs(t, err, tt.err)
		})
	}

	got, err := user.GetByUsername(ctx, db, " juan ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = user.Get(ctx, db, 999)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	admin := mustCreate(t, db, user.Input{Username: "admin", Email: "admin@example.org", Role: rbac.RoleAdmin})
	u := mustCreate(t, db, user.Input{Username: "maria", Email: "maria@example.org"})

	mod, err := user.SetRole(ctx, db, u.ID, rbac.RoleModerator, " Wawa ")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleModerator, mod.Role)
	assert.Equal(t, "Wawa", mod.Barangay)
	assert.True(t, rbac.CanEditBarangay(mod, "wawa"))

	ed, err := user.SetRole(ctx, db, u.ID, rbac.RoleEditor, "Wawa")
	require.NoError(t, err)
	assert.Empty(t, ed.Barangay, "only moderators keep a barangay")

	_, err = user.SetRole(ctx, db, u.ID, "superuser", "")
	require.ErrorIs(t, err, rbac.ErrUnknownRole)

	_, err = user.SetRole(ctx, db, admin.ID, rbac.RoleUser, "")
	require.ErrorIs(t, err, user.ErrLastAdmin)

	_, err = user.SetRole(ctx, db, u.ID, rbac.RoleAdmin, "")
	require.NoError(t, err)

	_, err = user.SetRole(ctx, db, admin.ID, rbac.RoleUser, "")
	require.NoError(t, err)

	got, err := user.Get(ctx, db, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, got.Role)
}

func TestSetActiveAndDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	admin := mustCreate(t, db, user.Input{Username: "admin", Email: "admin@example.org", Role: rbac.RoleAdmin})
	u := mustCreate(t, db, user.Input{Username: "jose", Email: "jose@example.org"})

	require.ErrorIs(t, user.SetActive(ctx, db, admin.ID, false), user.ErrLastAdmin)
	require.NoError(t, user.SetActive(ctx, db, u.ID, false))

	inactive := false
	res, err := user.List(ctx, db, user.Filter{Active: &inactive}, paging.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "jose", res.Items[0].Username)

	require.ErrorIs(t, user.Delete(ctx, db, admin.ID, admin.ID), user.ErrSelfDelete)
	require.ErrorIs(t, user.Delete(ctx, db, u.ID, admin.ID), user.ErrLastAdmin)

	require.NoError(t, db.Create(&models.Notification{UserID: u.ID, Title: "hello"}).Error)
	require.NoError(t, user.Delete(ctx, db, admin.ID, u.ID))
	require.ErrorIs(t, user.Delete(ctx, db, admin.ID, u.ID), user.ErrNotFound)

	var left int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", u.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestListAndCounts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	mustCreate(t, db, user.Input{Username: "admin", Email: "admin@example.org", Role: rbac.RoleAdmin})
	mustCreate(t, db, user.Input{Username: "ana", Email: "ana@example.org", FirstName: "Ana", LastName: "Santos"})
	mustCreate(t, db, user.Input{Username: "ben", Email: "ben@example.org", Role: rbac.RoleModerator, Barangay: "Wawa"})
	mustCreate(t, db, user.Input{Username: "cora", Email: "cora@example.org", Role: rbac.RoleEditor})

	tests := []struct {
		name   string
		filter user.Filter
		want   int64
	}{
		{name: "all", want: 4},
		{name: "search last name", filter: user.Filter{Search: "SANTOS"}, want: 1},
		{name: "role", filter: user.Filter{Role: rbac.RoleEditor}, want: 1},
		{name: "barangay", filter: user.Filter{Barangay: "wawa"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := user.List(ctx, db, tt.filter, paging.Params{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total)
		})
	}

	counts, err := user.CountByRole(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[rbac.Role]int64{
		rbac.RoleAdmin:     1,
		rbac.RoleModerator: 1,
		rbac.RoleEditor:    1,
		rbac.RoleUser:      1,
	}, counts)
}

func TestProfileTOTPAndLogin(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	u := mustCreate(t, db, user.Input{Username: "dana", Email: "dana@example.org", Password: "old"})

	upd, err := user.UpdateProfile(ctx, db, u.ID, user.Profile{Email: "dana@new.example.org", FirstName: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "dana@new.example.org", upd.Email)

	require.NoError(t, user.SetPassword(ctx, db, u.ID, "new"))
	require.NoError(t, user.SetTOTP(ctx, db, u.ID, "JBSWY3DPEHPK3PXP", true))

	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, user.TouchLogin(ctx, db, u.ID, now))

	got, err := user.Get(ctx, db, u.ID)
	require.NoError(t, err)
	assert.True(t, got.VerifyPassword("new"))
	assert.True(t, got.TOTPEnabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TOTPSecret)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(now))

	require.NoError(t, user.SetTOTP(ctx, db, u.ID, "", false))
	got, err = user.Get(ctx, db, u.ID)
	require.NoError(t, err)
	assert.False(t, got.TOTPEnabled)
	assert.Empty(t, got.TOTPSecret)
}
