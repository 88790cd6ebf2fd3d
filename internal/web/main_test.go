package web

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/navigation"
)

func TestCheckAlive(t *testing.T) {
	s := &Service{}
	app := fiber.New()
	app.Get(CheckAlivePath, s.CheckAlive)

	s.alive.Store(true)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	s.alive.Store(false)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestEmbeddedTemplates(t *testing.T) {
	engine := NewEngine(&config.Config{})
	require.NoError(t, engine.Load())

	var buf bytes.Buffer

	err := engine.Render(&buf, "barangay/federation", fiber.Map{
		"Navigation": navigation.Page("Federation Officials", navigation.SectionBarangays, "federation"),
		"Officials": []models.Official{
			{ID: 1, Name: "Ana Cruz", Position: "Federation President", Rank: 1},
		},
		"CanEdit":       false,
		"hasPermission": func(string) bool { return false },
	}, "layouts/base")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Ana Cruz")
	assert.Contains(t, buf.String(), "Federation Officials")

	buf.Reset()

	err = engine.Render(&buf, "error", fiber.Map{"Status": 404, "Message": "Not Found"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Not Found")
}

func TestStaticMaxAge(t *testing.T) {
	assert.Zero(t, staticMaxAge(&config.Config{}))
	assert.Equal(t, int((24 * time.Hour).Seconds()),
		staticMaxAge(&config.Config{Webserver: config.Webserver{CacheEnabled: true}}))
}

func TestAssetDir(t *testing.T) {
	tests := []struct {
		dir  string
		file string
	}{
		{dir: "static", file: "/css/portal.css"},
		{dir: "templates", file: "/layouts/base.gohtml"},
		{dir: "templates", file: "/announcement/detail.gohtml"},
	}

	for _, tt := range tests {
		t.Run(tt.dir+tt.file, func(t *testing.T) {
			f, err := assetDir(tt.dir).Open(tt.file)
			require.NoError(t, err)
			assert.NoError(t, f.Close())
		})
	}

	assert.Panics(t, func() { assetDir("../outside") })
}
