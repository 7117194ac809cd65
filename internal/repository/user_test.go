package repository

import (
	"context"
	"testing"
	"time"

	"worldnews/internal/cache"
	"worldnews/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateRejectsDuplicates(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	email := "dup@example.com"
	require.NoError(t, repo.Create(ctx, &models.User{Email: &email, Password: "h", Name: "A", Username: "a", Country: "US", IsActive: true}))

	err := repo.Create(ctx, &models.User{Email: &email, Password: "h", Name: "B", Username: "b", Country: "US", IsActive: true})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestUserRepository_Lookups(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	phone := "+15550100"
	u := &models.User{Phone: &phone, Password: "h", Name: "Phone", Username: "phoneuser", Country: "AU", IsActive: true}
	require.NoError(t, repo.Create(ctx, u))

	byPhone, err := repo.GetByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byPhone.ID)
	assert.Equal(t, "h", byPhone.Password)

	byName, err := repo.GetByUsername(ctx, "phoneuser")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestUserRepository_SetActiveInvalidatesCache(t *testing.T) {
	db := setupSQLite(t)
	mr, rdb := setupRedis(t)
	repo := NewUserRepository(db, rdb)
	ctx := context.Background()

	u := createUser(t, db, "cached")
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, mr.Exists(cache.UserKey(u.ID)))

	require.NoError(t, repo.SetActive(ctx, u.ID, false))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	u := createUser(t, db, "before")
	createUser(t, db, "taken")

	bio := "Reporter"
	updated, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Reporter", updated.Bio)
	assert.Equal(t, "before", updated.Username)

	taken := "taken"
	_, err = repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: &taken})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.Equal(t, "hash", stored.Password, "profile updates never touch the password hash")
}

func TestUserRepository_DeleteCascadesAndFixesCounters(t *testing.T) {
	db := setupSQLite(t)
	users := NewUserRepository(db, nil)
	posts := NewPostRepository(db, nil)
	ctx := context.Background()

	leaving := createUser(t, db, "leaving")
	staying := createUser(t, db, "staying")
	third := createUser(t, db, "third")

	theirPost := createPost(t, db, staying, "US", models.CategoryPolitics, time.Now())
	ownPost := createPost(t, db, leaving, "US", models.CategoryPolitics, time.Now())

	_, _, err := posts.ToggleLike(ctx, theirPost.ID, leaving.ID)
	require.NoError(t, err)
	_, _, err = posts.ToggleLike(ctx, theirPost.ID, third.ID)
	require.NoError(t, err)
	_, _, err = posts.ToggleLike(ctx, ownPost.ID, staying.ID)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, leaving.ID))

	_, err = users.GetByID(ctx, leaving.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	_, err = posts.GetByID(ctx, ownPost.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	survivor, err := posts.GetByID(ctx, theirPost.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, survivor.Likes)
	assertLikeInvariant(t, posts, theirPost.ID)

	var orphanLikes int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", ownPost.ID).Count(&orphanLikes).Error)
	assert.Zero(t, orphanLikes)

	assert.Equal(t, models.CodeNotFound, models.ErrorCode(users.Delete(ctx, leaving.ID)))
}
