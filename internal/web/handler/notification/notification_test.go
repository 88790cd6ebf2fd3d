package notification_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/notification"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/notification"
)

func setup(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.NewEnv(t)

	s := &notification.Service{}
	s.Init(env.App, env.Config, env.DB)

	return env
}

func inboxOf(t *testing.T, db *gorm.DB, u *models.User) []models.Notification {
	t.Helper()

	var out []models.Notification
	require.NoError(t, db.Where("user_id = ?", u.ID).Order("id").Find(&out).Error)

	return out
}

func TestSend(t *testing.T) {
	env := setup(t)

	editor := handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, "")
	poblacion := handlertest.CreateUser(t, env.DB, "poblacion", rbac.RoleModerator, "Poblacion")
	member := handlertest.CreateUser(t, env.DB, "member", rbac.RoleUser, "San Roque")

	tests := []struct {
		name     string
		user     *models.User
		form     url.Values
		status   int
		body     string
		received map[string]int
	}{
		{
			name:   "moderator may not send",
			user:   poblacion,
			form:   url.Values{"audience": {"all"}, "title": {"Hi"}},
			status: http.StatusForbidden,
		},
		{
			name:   "role required",
			user:   editor,
			form:   url.Values{"audience": {"role"}, "title": {"Hi"}},
			status: http.StatusBadRequest,
			body:   "Field 'Role' failed validation tag 'required_if'",
		},
		{
			name:   "unknown role",
			user:   editor,
			form:   url.Values{"audience": {"role"}, "role": {"mayor"}, "title": {"Hi"}},
			status: http.StatusBadRequest,
			body:   rbac.ErrUnknownRole.Error(),
		},
		{
			name:     "everyone",
			user:     editor,
			form:     url.Values{"audience": {"all"}, "title": {"Assembly"}, "link": {"/events/1"}},
			status:   http.StatusOK,
			body:     "Notification sent",
			received: map[string]int{"editor": 1, "poblacion": 1, "member": 1},
		},
		{
			name:     "one role",
			user:     editor,
			form:     url.Values{"audience": {"role"}, "role": {"Moderator"}, "title": {"Moderators meeting"}},
			status:   http.StatusOK,
			received: map[string]int{"editor": 1, "poblacion": 2, "member": 1},
		},
		{
			name:     "one barangay",
			user:     editor,
			form:     url.Values{"audience": {"barangay"}, "barangay": {"san roque"}, "title": {"Water interruption"}},
			status:   http.StatusOK,
			received: map[string]int{"editor": 1, "poblacion": 2, "member": 2},
		},
	}

	users := map[string]*models.User{"editor": editor, "poblacion": poblacion, "member": member}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, http.MethodPost, notification.SendPath, tt.user, tt.form)
			assert.Equal(t, tt.status, resp.Status)

			if tt.body != "" {
				assert.Contains(t, resp.Body, tt.body)
			}

			for name, want := range tt.received {
				assert.Len(t, inboxOf(t, env.DB, users[name]), want, name)
			}
		})
	}
}

func TestInbox(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	owner := handlertest.CreateUser(t, env.DB, "owner", rbac.RoleUser, "")
	other := handlertest.CreateUser(t, env.DB, "other", rbac.RoleUser, "")

	_, err := controller.Send(ctx, env.DB, controller.Audience{UserIDs: []uint64{owner.ID}},
		controller.Message{Title: "Linked", Link: "/events/3"})
	require.NoError(t, err)

	_, err = controller.Send(ctx, env.DB, controller.Audience{UserIDs: []uint64{owner.ID}},
		controller.Message{Title: "Offsite", Link: "//evil.example"})
	require.NoError(t, err)

	_, err = controller.Send(ctx, env.DB, controller.Audience{UserIDs: []uint64{owner.ID}},
		controller.Message{Title: "Plain"})
	require.NoError(t, err)

	inbox := inboxOf(t, env.DB, owner)
	require.Len(t, inbox, 3)

	resp := handlertest.Do(t, env.App, http.MethodGet, notification.Path, nil, nil)
	assert.Equal(t, http.StatusFound, resp.Status)

	resp = handlertest.Do(t, env.App, http.MethodGet, notification.Path+"?unread=true", owner, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, notification.TemplateInbox)

	read := func(u *models.User, id uint64) handlertest.Response {
		return handlertest.Do(t, env.App, http.MethodPost, fmt.Sprintf("%s/%d/read", notification.Path, id), u, url.Values{})
	}

	resp = read(other, inbox[0].ID)
	assert.Equal(t, http.StatusNotFound, resp.Status, "other users can not open the notification")

	resp = read(owner, inbox[0].ID)
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/events/3", resp.Location)

	resp = read(owner, inbox[1].ID)
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/", resp.Location)

	unread, err := controller.UnreadCount(ctx, env.DB, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	resp = handlertest.Do(t, env.App, http.MethodPost, notification.Path+"/read-all", owner, url.Values{})
	require.Equal(t, http.StatusFound, resp.Status)

	unread, err = controller.UnreadCount(ctx, env.DB, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	resp = handlertest.Do(t, env.App, http.MethodPost, fmt.Sprintf("%s/%d/delete", notification.Path, inbox[2].ID), other, url.Values{})
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = handlertest.Do(t, env.App, http.MethodPost, fmt.Sprintf("%s/%d/delete", notification.Path, inbox[2].ID), owner, url.Values{})
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Len(t, inboxOf(t, env.DB, owner), 2)
}
