package repository

import (
	"testing"
	"time"

	"worldnews/internal/database"
	"worldnews/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	email := username + "@example.com"
	u := &models.User{
		Email:    &email,
		Password: "hash",
		Name:     username,
		Username: username,
		Country:  "US",
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, owner *models.User, country string, category models.Category, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:    owner.ID,
		Country:   country,
		Category:  category,
		Title:     "Post " + country + " " + string(category),
		Content:   "body",
		IsActive:  true,
		CreatedAt: at,
	}
	require.NoError(t, db.Omit("Author").Create(p).Error)
	return p
}
