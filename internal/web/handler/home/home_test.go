package home_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/handlertest"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/handler/home"
)

func TestGet(t *testing.T) {
	env := handlertest.NewEnv(t)

	s := &home.Service{}
	s.Init(env.App, env.Config, env.DB)

	resp := handlertest.Do(t, env.App, http.MethodGet, home.Path, nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, home.TemplateName, resp.Body)
}
