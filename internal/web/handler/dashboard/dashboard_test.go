package dashboard_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/dashboard"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
)

func TestDashboardAccess(t *testing.T) {
	env := handlertest.NewEnv(t)

	s := &dashboard.Service{}
	s.Init(env.App, env.Config, env.DB)

	tests := []struct {
		name   string
		user   *models.User
		status int
	}{
		{name: "guest", status: http.StatusFound},
		{name: "user", user: handlertest.CreateUser(t, env.DB, "user", rbac.RoleUser, ""), status: http.StatusForbidden},
		{name: "moderator", user: handlertest.CreateUser(t, env.DB, "moderator", rbac.RoleModerator, "Poblacion"), status: http.StatusForbidden},
		{name: "editor", user: handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, ""), status: http.StatusOK},
		{name: "admin", user: handlertest.CreateUser(t, env.DB, "admin", rbac.RoleAdmin, ""), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, http.MethodGet, dashboard.Path, tt.user, nil)
			assert.Equal(t, tt.status, resp.Status)

			if tt.status == http.StatusOK {
				assert.Contains(t, resp.Body, dashboard.TemplateName)
			}
		})
	}
}
