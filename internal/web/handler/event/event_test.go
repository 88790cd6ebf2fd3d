package event_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	controller "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/event"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/event"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
)

func setup(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.NewEnv(t)

	s := &event.Service{}
	s.Init(env.App, env.Config, env.DB)

	return env
}

func createEvent(t *testing.T, env *handlertest.Env, title string, starts time.Time, capacity int) *models.Event {
	t.Helper()

	ev, err := controller.Create(context.Background(), env.DB, 0, controller.Input{
		Title:    title,
		StartsAt: starts,
		Capacity: capacity,
	})
	require.NoError(t, err)

	return ev
}

func eventForm(title string, starts time.Time) url.Values {
	return url.Values{
		"title":     {title},
		"location":  {"Covered court"},
		"barangay":  {"San Roque"},
		"starts_at": {starts.Format(event.DateTimeLayout)},
		"capacity":  {"20"},
		"tags":      {"Sports, youth"},
	}
}

func path(id uint64, suffix string) string {
	return fmt.Sprintf("%s/%d%s", event.Path, id, suffix)
}

func TestListAndDetail(t *testing.T) {
	env := setup(t)
	ev := createEvent(t, env, "Sportsfest", time.Now().Add(48*time.Hour), 0)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "upcoming", target: event.Path, status: http.StatusOK, body: event.TemplateList},
		{name: "past", target: event.Path + "?when=past", status: http.StatusOK, body: event.TemplateList},
		{name: "detail", target: path(ev.ID, ""), status: http.StatusOK, body: event.TemplateDetail},
		{name: "unknown", target: path(ev.ID+10, ""), status: http.StatusNotFound, body: "Event not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, http.MethodGet, tt.target, nil, nil)
			assert.Equal(t, tt.status, resp.Status)
			assert.Contains(t, resp.Body, tt.body)
		})
	}
}

func TestCreate(t *testing.T) {
	env := setup(t)
	starts := time.Now().Add(72 * time.Hour).Truncate(time.Minute)

	editor := handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, "")
	moderator := handlertest.CreateUser(t, env.DB, "moderator", rbac.RoleModerator, "Poblacion")
	member := handlertest.CreateUser(t, env.DB, "member", rbac.RoleUser, "San Roque")

	t.Run("member forbidden", func(t *testing.T) {
		resp := handlertest.Do(t, env.App, http.MethodPost, event.Path, member, eventForm("Clean-up", starts))
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("editor", func(t *testing.T) {
		resp := handlertest.Do(t, env.App, http.MethodPost, event.Path, editor, eventForm("Clean-up", starts))
		require.Equal(t, http.StatusFound, resp.Status)

		var ev models.Event
		require.NoError(t, env.DB.Where("title = ?", "Clean-up").First(&ev).Error)
		assert.Equal(t, "San Roque", ev.Barangay)
		assert.Equal(t, 20, ev.Capacity)
		assert.True(t, ev.StartsAt.Equal(starts))
		assert.Equal(t, []string{"sports", "youth"}, controller.Tags(&ev))
		assert.Equal(t, path(ev.ID, ""), resp.Location)
	})

	t.Run("moderator scoped to own barangay", func(t *testing.T) {
		resp := handlertest.Do(t, env.App, http.MethodPost, event.Path, moderator, eventForm("Barangay night", starts))
		require.Equal(t, http.StatusFound, resp.Status)

		var ev models.Event
		require.NoError(t, env.DB.Where("title = ?", "Barangay night").First(&ev).Error)
		assert.Equal(t, "Poblacion", ev.Barangay)
	})

	invalid := []struct {
		name string
		form url.Values
		body string
	}{
		{name: "missing title", form: eventForm("", starts), body: "Field 'Title' failed validation tag 'required'"},
		{name: "bad start", form: url.Values{"title": {"Talk"}, "starts_at": {"tomorrow"}}, body: "Invalid start time"},
		{
			name: "end before start",
			form: url.Values{
				"title":     {"Talk"},
				"starts_at": {starts.Format(event.DateTimeLayout)},
				"ends_at":   {starts.Add(-time.Hour).Format(event.DateTimeLayout)},
			},
			body: controller.ErrEndBeforeStart.Error(),
		},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, http.MethodPost, event.Path, editor, tt.form)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Contains(t, resp.Body, event.TemplateForm)
			assert.Contains(t, resp.Body, tt.body)
		})
	}
}

func TestRegistration(t *testing.T) {
	env := setup(t)
	ev := createEvent(t, env, "Seminar", time.Now().Add(24*time.Hour), 1)
	over := createEvent(t, env, "Yesterday", time.Now().Add(-24*time.Hour), 0)

	first := handlertest.CreateUser(t, env.DB, "first", rbac.RoleUser, "")
	second := handlertest.CreateUser(t, env.DB, "second", rbac.RoleUser, "")
	editor := handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, "")

	steps := []struct {
		name   string
		method string
		target string
		user   *models.User
		status int
		body   string
	}{
		{name: "guest", method: http.MethodPost, target: path(ev.ID, "/register"), status: http.StatusFound},
		{name: "first registers", method: http.MethodPost, target: path(ev.ID, "/register"), user: first, status: http.StatusFound},
		{name: "twice", method: http.MethodPost, target: path(ev.ID, "/register"), user: first, status: http.StatusConflict, body: controller.ErrAlreadyRegistered.Error()},
		{name: "full", method: http.MethodPost, target: path(ev.ID, "/register"), user: second, status: http.StatusConflict, body: controller.ErrEventFull.Error()},
		{name: "over", method: http.MethodPost, target: path(over.ID, "/register"), user: second, status: http.StatusConflict, body: controller.ErrEventOver.Error()},
		{name: "unknown", method: http.MethodPost, target: path(ev.ID+10, "/register"), user: second, status: http.StatusNotFound},
		{name: "registrants forbidden", method: http.MethodGet, target: path(ev.ID, "/registrants"), user: second, status: http.StatusForbidden},
		{name: "registrants", method: http.MethodGet, target: path(ev.ID, "/registrants"), user: editor, status: http.StatusOK, body: event.TemplateRegistrants},
		{name: "first unregisters", method: http.MethodPost, target: path(ev.ID, "/unregister"), user: first, status: http.StatusFound},
		{name: "not registered", method: http.MethodPost, target: path(ev.ID, "/unregister"), user: first, status: http.StatusConflict, body: controller.ErrNotRegistered.Error()},
		{name: "seat freed", method: http.MethodPost, target: path(ev.ID, "/register"), user: second, status: http.StatusFound},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			resp := handlertest.Do(t, env.App, st.method, st.target, st.user, url.Values{})
			assert.Equal(t, st.status, resp.Status)

			if st.body != "" {
				assert.Contains(t, resp.Body, st.body)
			}
		})
	}

	regs, err := controller.Registrants(context.Background(), env.DB, ev.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, second.ID, regs[0].UserID)
}

func TestUpdateAndDelete(t *testing.T) {
	env := setup(t)
	starts := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	ev := createEvent(t, env, "Seminar", starts, 5)

	editor := handlertest.CreateUser(t, env.DB, "editor", rbac.RoleEditor, "")
	moderator := handlertest.CreateUser(t, env.DB, "moderator", rbac.RoleModerator, "Poblacion")
	member := handlertest.CreateUser(t, env.DB, "member", rbac.RoleUser, "")

	_, err := controller.Register(context.Background(), env.DB, ev.ID, member.ID, time.Now())
	require.NoError(t, err)

	resp := handlertest.Do(t, env.App, http.MethodGet, path(ev.ID, "/edit"), editor, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, event.TemplateForm)

	resp = handlertest.Do(t, env.App, http.MethodPost, path(ev.ID, ""), moderator, eventForm("Leadership seminar", starts))
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = handlertest.Do(t, env.App, http.MethodPost, path(ev.ID, ""), editor, eventForm("Leadership seminar", starts))
	require.Equal(t, http.StatusFound, resp.Status)

	updated, err := controller.Get(context.Background(), env.DB, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leadership seminar", updated.Title)
	assert.Equal(t, 20, updated.Capacity)

	resp = handlertest.Do(t, env.App, http.MethodPost, path(ev.ID, "/delete"), moderator, url.Values{})
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = handlertest.Do(t, env.App, http.MethodPost, path(ev.ID, "/delete"), editor, url.Values{})
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, event.Path, resp.Location)

	var n int64
	require.NoError(t, env.DB.Model(&models.EventRegistration{}).Count(&n).Error)
	assert.Zero(t, n)

	resp = handlertest.Do(t, env.App, http.MethodPost, path(ev.ID, "/delete"), editor, url.Values{})
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
