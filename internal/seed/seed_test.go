package seed

import (
	"context"
	"testing"

	"worldnews/internal/database"
	"worldnews/internal/models"
	"worldnews/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestSeeder(db *gorm.DB) *Seeder {
	s := NewSeeder(db)
	s.cost = bcrypt.MinCost
	return s
}

func TestLoadDemo(t *testing.T) {
	ds, err := LoadDemo()
	require.NoError(t, err)
	require.Len(t, ds.Users, 2)
	require.Len(t, ds.Posts, 12)

	perCountry := map[string]int{}
	perCategory := map[models.Category]int{}
	for _, p := range ds.Posts {
		perCountry[p.Country]++
		perCategory[p.Category]++
	}
	assert.Equal(t, map[string]int{"US": 6, "UK": 6}, perCountry)
	assert.Len(t, perCategory, len(models.Categories))
}

func TestParseDataset_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown author": `
users: [{username: a_user, password: x, country: US}]
posts: [{author: someone, country: US, category: sports, title: t}]`,
		"bad country": `
users: [{username: a_user, password: x, country: ZZ}]`,
		"bad category": `
users: [{username: a_user, password: x, country: US}]
posts: [{author: a_user, country: US, category: weather, title: t}]`,
		"missing password": `
users: [{username: a_user, country: US}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataset([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestSeeder_DemoIsIdempotent(t *testing.T) {
	db := setupSQLite(t)
	s := newTestSeeder(db)
	ctx := context.Background()

	res, err := s.Demo(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 2, Posts: 12}, res)

	res, err = s.Demo(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res, "second run creates nothing")

	var admin models.User
	require.NoError(t, db.Where("username = ?", "kevin_admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "kevin@gmail.com", admin.Contact())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("kevin123")))

	var posts []models.Post
	require.NoError(t, db.Order("created_at DESC").Find(&posts).Error)
	require.Len(t, posts, 12)
	assert.Equal(t, "London Theatre District Celebrates 50 Years", posts[0].Title)
	for _, p := range posts {
		assert.Zero(t, p.Likes, "demo posts start without likes")
		assert.True(t, p.IsActive)
	}
}

func TestFactory_EngagementKeepsCountersInSync(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()
	_, err := newTestSeeder(db).Demo(ctx)
	require.NoError(t, err)

	repo := repository.NewPostRepository(db, nil)
	f := NewFactory(db, repo, FactoryOptions{Seed: 42, LikeRate: 0.5})
	f.cost = bcrypt.MinCost

	readers, likes, err := f.Readers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, readers, 5)
	for _, r := range readers {
		assert.True(t, r.IsActive)
		assert.LessOrEqual(t, len(r.Username), 30)
	}

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Count(&rows).Error)
	assert.EqualValues(t, likes, rows)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		n, err := repo.CountLikeRows(ctx, p.ID)
		require.NoError(t, err)
		assert.EqualValues(t, n, p.Likes, "post %d", p.ID)
	}
}

func TestSeeder_ClearAll(t *testing.T) {
	db := setupSQLite(t)
	s := newTestSeeder(db)
	ctx := context.Background()
	_, err := s.Demo(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	for _, model := range []interface{}{&models.User{}, &models.Post{}, &models.Like{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
}
