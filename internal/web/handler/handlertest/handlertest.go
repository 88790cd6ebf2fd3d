// Package handlertest provides the fixtures shared by handler tests: a views
// engine that renders nothing but the template name, an in-memory database,
// and a way to act as a given user.
package handlertest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/auth"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	database "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

// UserHeader selects the acting user id of a test request.
const UserHeader = "X-Test-User"

// NoOpViews is a minimal Fiber Views engine used for tests.
// It writes the template name and, if present, the "Error" or "Message" field.
type NoOpViews struct{}

// Load implements fiber.Views.
func (NoOpViews) Load() error { return nil }

// Render implements fiber.Views.
func (NoOpViews) Render(w io.Writer, name string, data any, _ ...string) error {
	_, _ = io.WriteString(w, name)

	if m, ok := data.(fiber.Map); ok {
		for _, key := range []string{"Error", "Message"} {
			if v, exists := m[key]; exists && v != nil && v != "" {
				_, _ = fmt.Fprintf(w, "\n%v", v)
			}
		}
	}

	return nil
}

// NewDB opens a migrated in-memory sqlite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DB{GormEngine: config.EngineSQLite, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

// NewConfig returns a configuration suitable for handler tests.
func NewConfig() *config.Config {
	return &config.Config{
		Title: "SK Federation",
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute, Backend: config.SessionBackendMemory},
		},
		Auth: config.Auth{
			LocalDB:      config.LocalDBAuth{Enabled: true},
			Registration: config.Registration{Enabled: true},
		},
	}
}

// NewApp returns a fiber app with the portal error handler, in-memory
// sessions and a middleware that loads the user named by UserHeader.
func NewApp(db *gorm.DB) *fiber.App {
	session.Init(nil)

	app := fiber.New(fiber.Config{
		Views:        NoOpViews{},
		ErrorHandler: handler.ErrorHandler,
	})

	app.Use(func(c *fiber.Ctx) error {
		if raw := c.Get(UserHeader); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return err
			}

			u, err := user.Get(c.UserContext(), db, id)
			if err != nil {
				return err
			}

			auth.SetCurrentUser(c, u)
		}

		return c.Next()
	})
	app.Use(auth.AddPermissionsToLocals())

	return app
}

// Env bundles the fixtures of one handler test.
type Env struct {
	App    *fiber.App
	Config *config.Config
	DB     *gorm.DB
}

// NewEnv returns a fresh database, config and app.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := NewDB(t)

	return &Env{App: NewApp(db), Config: NewConfig(), DB: db}
}

// CreateUser inserts an active local account with password "password123".
func CreateUser(t *testing.T, db *gorm.DB, username string, role rbac.Role, barangay string) *models.User {
	t.Helper()

	u, err := user.Create(context.Background(), db, user.Input{
		Username: username,
		Email:    username + "@example.org",
		Password: "password123",
		Role:     role,
		Barangay: barangay,
	})
	require.NoError(t, err)

	return u
}

// Response is a fully read response.
type Response struct {
	Status   int
	Body     string
	Location string
	Header   http.Header
}

// Cookie returns the cookie set by the response, or nil.
func (r Response) Cookie(name string) *http.Cookie {
	for _, c := range (&http.Response{Header: r.Header}).Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// Request builds a request as u (nil for a guest). A non-nil form is sent url-encoded.
func Request(method, target string, u *models.User, form url.Values) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if u != nil {
		req.Header.Set(UserHeader, strconv.FormatUint(u.ID, 10))
	}

	return req
}

// Do performs a request built by Request.
func Do(t *testing.T, app *fiber.App, method, target string, u *models.User, form url.Values) Response {
	t.Helper()

	return Send(t, app, Request(method, target, u, form))
}

// Send performs req and reads the whole response.
func Send(t *testing.T, app *fiber.App, req *http.Request) Response {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return Response{
		Status:   resp.StatusCode,
		Body:     string(b),
		Location: resp.Header.Get("Location"),
		Header:   resp.Header,
	}
}
