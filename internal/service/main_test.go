package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"worldnews/internal/database"
	"worldnews/internal/models"
	"worldnews/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, repository.PostFilter) ([]*models.Post, error)
	updateFn        func(context.Context, uint, repository.PostUpdate) (*models.Post, error)
	setActiveFn     func(context.Context, uint, bool) error
	deleteFn        func(context.Context, uint) error
	toggleLikeFn    func(context.Context, uint, uint) (bool, int, error)
	likedPostIDsFn  func(context.Context, uint, []uint) ([]uint, error)
	countLikeRowsFn func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) Update(ctx context.Context, id uint, update repository.PostUpdate) (*models.Post, error) {
	return s.updateFn(ctx, id, update)
}
func (s *postRepoStub) SetActive(ctx context.Context, id uint, active bool) error {
	return s.setActiveFn(ctx, id, active)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.likedPostIDsFn(ctx, userID, postIDs)
}
func (s *postRepoStub) CountLikeRows(ctx context.Context, postID uint) (int64, error) {
	return s.countLikeRowsFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id, IsActive: true}, nil },
		listFn:    func(_ context.Context, _ repository.PostFilter) ([]*models.Post, error) { return nil, nil },
		updateFn: func(_ context.Context, id uint, _ repository.PostUpdate) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		setActiveFn:     func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn:    func(_ context.Context, _, _ uint) (bool, int, error) { return true, 1, nil },
		likedPostIDsFn:  func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
		countLikeRowsFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeUnauthorized)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, models.CodeForbidden)
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
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func seedUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	email := username + "@example.com"
	u := &models.User{
		Email:    &email,
		Password: "hash",
		Name:     username,
		Username: username,
		Country:  "US",
		IsAdmin:  admin,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func strPtr(s string) *string { return &s }
