package server

import (
	"fmt"
	"net/http"
	"testing"

	"worldnews/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	env := newTestEnv(t, false)
	member := env.seedUser(t, "member", false)
	token := env.tokenFor(t, member.ID)

	for _, path := range []string{"/api/admin/users", "/api/admin/posts", "/api/admin/feature-flags"} {
		resp := env.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	guest := env.do(t, http.MethodPost, "/api/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, guest.StatusCode)
	guestToken := decode[map[string]any](t, guest)["token"].(string)
	resp := env.do(t, http.MethodGet, "/api/admin/users", guestToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUserModeration(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.seedUser(t, "kevin", true)
	member := env.seedUser(t, "sarah", false)
	adminToken := env.tokenFor(t, admin.ID)
	memberToken := env.tokenFor(t, member.ID)

	resp := env.do(t, http.MethodGet, "/api/admin/users?limit=10", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, resp), 2)

	statusPath := fmt.Sprintf("/api/admin/users/%d/status", member.ID)
	resp = env.do(t, http.MethodPost, statusPath, adminToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[models.User](t, resp).IsActive)

	resp = env.do(t, http.MethodGet, "/api/users/me", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "deactivated sessions stop working")

	resp = env.do(t, http.MethodPost, statusPath, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.User](t, resp).IsActive, "empty body toggles")

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/status", admin.ID), adminToken,
		map[string]bool{"active": false})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "admins cannot deactivate themselves")

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", admin.ID), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	env.seedPost(t, member, "US", models.CategoryEducation, "school")
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", member.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var posts int64
	require.NoError(t, env.db.Model(&models.Post{}).Where("user_id = ?", member.ID).Count(&posts).Error)
	assert.Zero(t, posts)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", member.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminPostModeration(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedUser(t, "kevin", true)
	member := env.seedUser(t, "sarah", false)
	adminToken := env.tokenFor(t, admin.ID)
	post := env.seedPost(t, member, "BR", models.CategoryCulture, "carnival")

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/posts/%d/status", post.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[models.Post](t, resp).IsActive)

	resp = env.do(t, http.MethodGet, "/api/admin/posts", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[[]models.Post](t, resp)
	require.Len(t, listed, 1, "admin listing includes inactive posts")
	assert.False(t, listed[0].IsActive)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/posts/%d", post.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetFeatureFlags(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedUser(t, "kevin", true)

	resp := env.do(t, http.MethodGet, "/api/admin/feature-flags", env.tokenFor(t, admin.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Flags   map[string]string `json:"flags"`
		Enabled map[string]bool   `json:"enabled"`
	}](t, resp)
	assert.Equal(t, "on", body.Flags["guest_login"])
	assert.True(t, body.Enabled["guest_login"])
	assert.False(t, body.Enabled["phone_signup"])
}
