package fiber_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
	adapter "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger/adapter/fiber"
)

type accessLine struct {
	IP     string `json:"IP"`
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
	User   string `json:"user"`
	Error  string `json:"error"`
}

var consoleAccess = logger.Log{
	EnableAccessLogToConsole: true,
	Console:                  logger.Console{Enabled: true},
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cfg    adapter.Config
		want   *accessLine
	}{
		{
			name:   "console disabled",
			target: "/",
		},
		{
			name:   "root",
			target: "/",
			cfg:    adapter.Config{Config: consoleAccess},
			want:   &accessLine{Status: fiber.StatusOK, URI: "/", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "unnormalized path with query",
			target: "//announcements?page=2",
			cfg:    adapter.Config{Config: consoleAccess},
			want:   &accessLine{Status: fiber.StatusNotFound, URI: "//announcements?page=2", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "user from locals",
			target: "/whoami",
			cfg:    adapter.Config{Config: consoleAccess, UserLocal: "username"},
			want:   &accessLine{Status: fiber.StatusOK, URI: "/whoami", Method: fiber.MethodGet, Host: "example.com", User: "kagawad"},
		},
		{
			name:   "chain error is logged",
			target: "/fail",
			cfg:    adapter.Config{Config: consoleAccess},
			want:   &accessLine{Status: fiber.StatusInternalServerError, URI: "/fail", Method: fiber.MethodGet, Host: "example.com", Error: "poll store offline"},
		},
		{
			name:   "checkalive skipped",
			target: "/checkalive",
			cfg: adapter.Config{
				Config: logger.Log{
					EnableAccessLogToConsole: true,
					DisableCheckAlive:        true,
					Console:                  logger.Console{Enabled: true},
				},
				CheckAliveURI: "/checkalive",
			},
		},
		{
			name:   "next skips middleware",
			target: "/",
			cfg: adapter.Config{
				Config: consoleAccess,
				Next:   func(*fiber.Ctx) bool { return true },
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := serve(t, tt.target, tt.cfg)
			require.NoError(t, err)

			if tt.want == nil {
				assert.Empty(t, out)
				return
			}

			require.NotEmpty(t, out)

			var got accessLine
			require.NoError(t, json.Unmarshal([]byte(out), &got))

			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.URI, got.URI)
			assert.Equal(t, tt.want.Method, got.Method)
			assert.Equal(t, tt.want.Host, got.Host)
			assert.Equal(t, "0.0.0.0", got.IP)
			assert.Equal(t, tt.want.User, got.User)
			assert.Equal(t, tt.want.Error, got.Error)
		})
	}
}

func serve(t *testing.T, target string, cfg adapter.Config) (string, error) {
	t.Helper()

	stdout, stderr := os.Stdout, os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	os.Stderr = w

	app := fiber.New(fiber.Config{CaseSensitive: true, Immutable: true})

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("username", "kagawad")
		return c.Next()
	})
	app.Use(adapter.New(cfg))

	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("mabuhay") })
	app.Get("/whoami", func(c *fiber.Ctx) error { return c.SendString("kagawad") })
	app.Get("/checkalive", func(c *fiber.Ctx) error { return c.SendString("OK") })
	app.Get("/fail", func(*fiber.Ctx) error {
		return errors.New("poll store offline") //nolint:err113
	})

	_, err = app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer

		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC, err
}

func TestPerformanceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(adapter.New())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("mabuhay") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Regexp(t, `^\d+\.\d{6}$`, resp.Header.Get(adapter.PerformanceHeader))
}
