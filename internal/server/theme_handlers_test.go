package server

import (
	"io"
	"net/http"
	"testing"

	"worldnews/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeEndpoints(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.seedUser(t, "kevin", true)
	member := env.seedUser(t, "sarah", false)

	resp := env.do(t, http.MethodGet, "/api/theme", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	initial := decode[service.AppliedTheme](t, resp)
	assert.Equal(t, "medium", string(initial.Settings.FontSize))
	assert.Equal(t, "16px", initial.Presentation.RootFontSize)

	resp = env.do(t, http.MethodPatch, "/api/theme", env.tokenFor(t, member.ID), map[string]string{"font_size": "large"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, "/api/theme", env.tokenFor(t, admin.ID), map[string]string{
		"font_size":     "large",
		"primary_color": "not a colour",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/theme", "", nil)
	assert.Equal(t, "medium", string(decode[service.AppliedTheme](t, resp).Settings.FontSize),
		"a rejected patch changes nothing")

	resp = env.do(t, http.MethodPatch, "/api/theme", env.tokenFor(t, admin.ID), map[string]string{
		"font_size":  "large",
		"image_size": "small",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[service.AppliedTheme](t, resp)
	assert.Equal(t, "18px", updated.Presentation.RootFontSize)
	assert.Equal(t, "200px", updated.Presentation.ImageHeight)
	assert.Equal(t, initial.Settings.PrimaryColor, updated.Settings.PrimaryColor, "absent fields are kept")

	assert.True(t, env.mr.Exists("settings:theme"))

	resp = env.do(t, http.MethodGet, "/api/theme.css", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	css, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(css), "font-size: 18px")
	assert.Contains(t, string(css), "--image-height: 200px")
}

func TestThemeEndpoints_EmptyPatchKeepsTheme(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedUser(t, "kevin", true)

	resp := env.do(t, http.MethodPatch, "/api/theme", env.tokenFor(t, admin.ID), map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	theme := decode[service.AppliedTheme](t, resp)
	assert.Equal(t, "medium", string(theme.Settings.FontSize))
	assert.Equal(t, "16px", theme.Presentation.RootFontSize)
}
