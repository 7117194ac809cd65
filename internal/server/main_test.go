package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"worldnews/internal/config"
	"worldnews/internal/database"
	"worldnews/internal/models"
	"worldnews/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-that-is-long-enough-123"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
	tokens *service.TokenManager
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWTSecret:        testSecret,
		Port:             "0",
		Env:              "test",
		PublicBaseURL:    "https://worldnews.example",
		MediaDir:         t.TempDir(),
		MediaMaxUploadMB: 5,
		FeatureFlags:     "guest_login=on,phone_signup=off",
		AllowedOrigins:   "http://localhost:5173",
	}
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// newTestEnv builds the full app on in-memory SQLite. withRedis selects between
// a miniredis-backed deployment and a single instance without Redis.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	env := &testEnv{db: setupSQLite(t), tokens: service.NewTokenManager(testSecret, time.Hour)}

	var rdb *redis.Client
	if withRedis {
		env.mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
	}

	s, err := NewServerWithDeps(testConfig(t), env.db, rdb)
	require.NoError(t, err)
	env.server = s
	env.app = s.App()
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string, admin bool) *models.User {
	t.Helper()
	email := username + "@example.com"
	u := &models.User{
		Email:    &email,
		Password: "hash",
		Name:     username,
		Username: username,
		Country:  "US",
		Avatar:   "👤",
		IsAdmin:  admin,
		IsActive: true,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	raw, _, err := e.tokens.Issue(userID, false)
	require.NoError(t, err)
	return raw
}

func (e *testEnv) seedPost(t *testing.T, owner *models.User, country string, category models.Category, title string) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:    owner.ID,
		Country:   country,
		Category:  category,
		Title:     title,
		Content:   "content of " + title,
		Image:     "https://images.example/" + title + ".jpg",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

// do sends a request through the app. body may be nil or any JSON-encodable value.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
