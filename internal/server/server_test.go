package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"worldnews/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	env.mr.Close()
	resp = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthChecks_WithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	checks := decode[map[string]any](t, resp)["checks"].(map[string]any)
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = env.do(t, http.MethodGet, "/api/meta/countries", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	countries := decode[[]models.Country](t, resp)
	assert.Len(t, countries, len(models.Countries))
	assert.Equal(t, "US", countries[0].Code)

	resp = env.do(t, http.MethodGet, "/api/meta/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.CategoryInfo](t, resp), 6)
}

func TestOptionalAuth_IgnoresBadTokens(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/posts", "garbage", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "user ID", humanizeParam("userId"))
	assert.Equal(t, "post owner ID", humanizeParam("postOwnerId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}

// commandCounter counts Redis commands by name.
type commandCounter struct {
	name string
	n    atomic.Int64
}

func (h *commandCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *commandCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.name {
			h.n.Add(1)
		}
		return next(ctx, cmd)
	}
}

func (h *commandCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestAuth_TokenResolvedOncePerRequest(t *testing.T) {
	env := newTestEnv(t, true)
	user := env.seedUser(t, "reader", false)
	admin := env.seedUser(t, "kevin", true)
	revocationChecks := &commandCounter{name: "exists"}
	env.server.redis.AddHook(revocationChecks)

	for _, tc := range []struct {
		path  string
		token string
	}{
		{"/api/users/me", env.tokenFor(t, user.ID)},
		{"/api/posts", env.tokenFor(t, user.ID)},
		{"/api/admin/users", env.tokenFor(t, admin.ID)},
	} {
		revocationChecks.n.Store(0)
		resp := env.do(t, http.MethodGet, tc.path, tc.token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, tc.path)
		assert.EqualValues(t, 1, revocationChecks.n.Load(), tc.path)
	}
}
