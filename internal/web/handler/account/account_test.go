package account_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/account"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
)

func setup(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.NewEnv(t)

	s := &account.Service{}
	s.Init(env.App, env.Config, env.DB)

	return env
}

func TestGuestIsSentToLogin(t *testing.T) {
	env := setup(t)

	resp := handlertest.Do(t, env.App, http.MethodGet, account.Path, nil, nil)
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/login?next=%2Faccount", resp.Location)
}

func TestProfile(t *testing.T) {
	env := setup(t)
	u := handlertest.CreateUser(t, env.DB, "juan", rbac.RoleUser, "")

	resp := handlertest.Do(t, env.App, http.MethodGet, account.Path, u, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, account.TemplateProfile, resp.Body)

	resp = handlertest.Do(t, env.App, http.MethodPost, account.Path, u, url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Body, "Field 'Email' failed validation tag 'email'")

	resp = handlertest.Do(t, env.App, http.MethodPost, account.Path, u, url.Values{
		"email": {"juan.dc@sk.example"}, "first_name": {"Juan"}, "last_name": {"Dela Cruz"},
	})
	assert.Equal(t, http.StatusOK, resp.Status)

	got, err := user.Get(context.Background(), env.DB, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "juan.dc@sk.example", got.Email)
	assert.Equal(t, "Juan Dela Cruz", got.FullName())
	assert.Equal(t, rbac.RoleUser, got.Role)
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		status  int
		wantErr string
		changed bool
	}{
		{
			name:    "wrong current password",
			form:    url.Values{"current": {"nope"}, "new": {"brand-new-pass"}, "confirm": {"brand-new-pass"}},
			status:  http.StatusBadRequest,
			wantErr: auth.ErrInvalidOldPassword.Error(),
		},
		{
			name:    "confirmation differs",
			form:    url.Values{"current": {"password123"}, "new": {"brand-new-pass"}, "confirm": {"other-new-pass"}},
			status:  http.StatusBadRequest,
			wantErr: account.ErrPasswordMismatch.Error(),
		},
		{
			name:    "changed",
			form:    url.Values{"current": {"password123"}, "new": {"brand-new-pass"}, "confirm": {"brand-new-pass"}},
			status:  http.StatusOK,
			changed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			u := handlertest.CreateUser(t, env.DB, "juan", rbac.RoleUser, "")

			resp := handlertest.Do(t, env.App, http.MethodPost, account.PasswordPath, u, tt.form)
			assert.Equal(t, tt.status, resp.Status)

			if tt.wantErr != "" {
				assert.Equal(t, account.TemplateProfile+"\n"+tt.wantErr, resp.Body)
			}

			got, err := user.Get(context.Background(), env.DB, u.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, got.VerifyPassword("brand-new-pass"))
			assert.Equal(t, !tt.changed, got.VerifyPassword("password123"))
		})
	}
}

func TestTwoFactorEnrollment(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	u := handlertest.CreateUser(t, env.DB, "maria", rbac.RoleEditor, "")

	resp := handlertest.Do(t, env.App, http.MethodGet, account.TwoFactorPath, u, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, account.TemplateTwoFactor, resp.Body)

	pending, err := user.Get(ctx, env.DB, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pending.TOTPSecret)
	assert.False(t, pending.TOTPEnabled)

	resp = handlertest.Do(t, env.App, http.MethodPost, account.TwoFactorPath, u, url.Values{"code": {"123"}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	code, err := totp.GenerateCode(pending.TOTPSecret, time.Now())
	require.NoError(t, err)

	resp = handlertest.Do(t, env.App, http.MethodPost, account.TwoFactorPath, u, url.Values{"code": {code}})
	assert.Equal(t, http.StatusOK, resp.Status)

	enabled, err := user.Get(ctx, env.DB, u.ID)
	require.NoError(t, err)
	assert.True(t, enabled.TOTPEnabled)
	assert.Equal(t, pending.TOTPSecret, enabled.TOTPSecret)

	// an enabled factor is not replaced by visiting the page again
	resp = handlertest.Do(t, env.App, http.MethodGet, account.TwoFactorPath, u, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	again, err := user.Get(ctx, env.DB, u.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.TOTPSecret, again.TOTPSecret)

	resp = handlertest.Do(t, env.App, http.MethodPost, account.TwoFactorDisablePath, u, url.Values{"code": {code}})
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, account.Path, resp.Location)

	disabled, err := user.Get(ctx, env.DB, u.ID)
	require.NoError(t, err)
	assert.False(t, disabled.TOTPEnabled)
	assert.Empty(t, disabled.TOTPSecret)
}
