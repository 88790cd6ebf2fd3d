package portal_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/admin/settings/portal"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
)

func TestPortalSettings(t *testing.T) {
	env := handlertest.NewEnv(t)

	s := &portal.Service{}
	s.Init(env.App, env.Config, env.DB)

	admin := handlertest.CreateUser(t, env.DB, "admin", rbac.RoleAdmin, "")
	editor := handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, "")

	resp := handlertest.Do(t, env.App, http.MethodGet, portal.Path, editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = handlertest.Do(t, env.App, http.MethodGet, portal.Path, admin, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, portal.TemplateName)

	tests := []struct {
		name   string
		form   url.Values
		status int
		body   string
	}{
		{
			name:   "missing name",
			form:   url.Values{"federation_name": {" "}},
			status: http.StatusBadRequest,
			body:   "Field 'FederationName' failed validation tag 'required'",
		},
		{
			name:   "bad email",
			form:   url.Values{"federation_name": {"SK Federation"}, "contact_email": {"nope"}},
			status: http.StatusBadRequest,
			body:   "Field 'ContactEmail' failed validation tag 'email'",
		},
		{
			name:   "page size too large",
			form:   url.Values{"federation_name": {"SK Federation"}, "announcements_page": {"500"}},
			status: http.StatusBadRequest,
			body:   "Field 'AnnouncementsPage' failed validation tag 'max'",
		},
		{
			name: "saved",
			form: url.Values{
				"federation_name":    {"SK Federation of San Pablo"},
				"contact_email":      {"sk@example.org"},
				"announcements_page": {"5"},
				"motto":              {"Kabataan para sa bayan"},
			},
			status: http.StatusOK,
			body:   "Settings saved successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, http.MethodPost, portal.Path, admin, tt.form)
			assert.Equal(t, tt.status, resp.Status)
			assert.Contains(t, resp.Body, tt.body)
		})
	}

	settings, err := controller.Load(context.Background(), env.DB, env.Config.Title)
	require.NoError(t, err)
	assert.Equal(t, "SK Federation of San Pablo", settings.FederationName)
	assert.Equal(t, 5, settings.AnnouncementsPage)
	assert.False(t, settings.RegistrationEnabled, "unchecked box disables registration")
}
