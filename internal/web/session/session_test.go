package session_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

func TestDataRoundTrip(t *testing.T) {
	session.Init(nil)

	in := &session.Data{UserID: 7, TOTPPending: true}
	require.NoError(t, in.Write("abc", time.Minute))

	out := new(session.Data)
	require.NoError(t, out.Read("abc"))
	assert.Equal(t, uint64(7), out.UserID)
	assert.False(t, out.Authenticated())

	require.NoError(t, session.Delete("abc"))
	require.ErrorIs(t, out.Read("abc"), session.ErrNoSession)
	require.ErrorIs(t, out.Read(""), session.ErrNoSession)
}

func TestBeginCurrentEnd(t *testing.T) {
	session.Init(nil)

	app := fiber.New()
	app.Get("/begin", func(c *fiber.Ctx) error {
		return session.Begin(c, &session.Data{UserID: 3}, time.Hour, true)
	})
	app.Get("/current", func(c *fiber.Ctx) error {
		data, err := session.Current(c)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		if !data.Authenticated() {
			return fiber.ErrForbidden
		}

		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/end", func(c *fiber.Ctx) error {
		if data := session.End(c, false); data == nil {
			return fiber.ErrNotFound
		}

		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/begin", nil))
	require.NoError(t, err)
	resp.Body.Close()

	setCookie := resp.Header.Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, session.CookieName+"="), setCookie)
	assert.Contains(t, strings.ToLower(setCookie), "httponly")
	assert.Contains(t, strings.ToLower(setCookie), "secure")

	cookie := strings.SplitN(setCookie, ";", 2)[0]

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Cookie", cookie)

		r, errTest := app.Test(req)
		require.NoError(t, errTest)
		r.Body.Close()

		return r.StatusCode
	}

	assert.Equal(t, fiber.StatusNoContent, do("/current"))
	assert.Equal(t, fiber.StatusNoContent, do("/end"))
	assert.Equal(t, fiber.StatusUnauthorized, do("/current"))
	assert.Equal(t, fiber.StatusNotFound, do("/end"))
}

func TestNewStorage(t *testing.T) {
	tests := []struct {
		name    string
		session config.Session
		db      config.DB
		isNil   bool
		wantErr bool
	}{
		{name: "memory", session: config.Session{Backend: config.SessionBackendMemory}, isNil: true},
		{name: "redis", session: config.Session{Backend: config.SessionBackendRedis, Redis: config.Redis{Addr: "127.0.0.1:0"}}},
		{name: "sqlite db", session: config.Session{Backend: config.SessionBackendDB}, db: config.DB{GormEngine: config.EngineSQLite}, isNil: true},
		{name: "unknown engine", session: config.Session{Backend: config.SessionBackendDB}, db: config.DB{GormEngine: "oracle"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := session.NewStorage(tt.session, tt.db)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			if tt.isNil {
				assert.Nil(t, s)
				return
			}

			require.NotNil(t, s)
			assert.NoError(t, s.Close())
		})
	}
}

func TestNewRedisStorage(t *testing.T) {
	s := session.NewRedisStorage(config.Redis{Addr: "127.0.0.1:0", Password: "secret", DB: 3})
	t.Cleanup(func() { _ = s.Close() })

	client, ok := s.Conn().(*goredis.Client)
	require.True(t, ok)

	opts := client.Options()
	assert.Equal(t, "127.0.0.1:0", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
}
