// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"worldnews/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed demo.yaml
var demoYAML []byte

// DemoUser is an account in the demo dataset.
type DemoUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Country  string `yaml:"country"`
	Avatar   string `yaml:"avatar"`
	Bio      string `yaml:"bio"`
	Admin    bool   `yaml:"admin"`
}

// DemoPost is a post in the demo dataset, attributed by author username.
type DemoPost struct {
	Author    string          `yaml:"author"`
	Country   string          `yaml:"country"`
	Category  models.Category `yaml:"category"`
	Title     string          `yaml:"title"`
	Content   string          `yaml:"content"`
	Image     string          `yaml:"image"`
	CreatedAt time.Time       `yaml:"created_at"`
}

// Dataset is the decoded demo file.
type Dataset struct {
	Users []DemoUser `yaml:"users"`
	Posts []DemoPost `yaml:"posts"`
}

// Result counts what a seeding run created.
type Result struct {
	Users int
	Posts int
}

// LoadDemo decodes and checks the embedded demo dataset.
func LoadDemo() (*Dataset, error) {
	return ParseDataset(demoYAML)
}

// ParseDataset decodes a dataset and checks that every post references a
// known author, country and category.
func ParseDataset(raw []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	authors := make(map[string]bool, len(ds.Users))
	for i, u := range ds.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("user %d: username and password are required", i)
		}
		if _, err := models.ParseCountry(u.Country); err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
		authors[u.Username] = true
	}
	for i, p := range ds.Posts {
		if !authors[p.Author] {
			return nil, fmt.Errorf("post %d: unknown author %q", i, p.Author)
		}
		if _, err := models.ParseCountry(p.Country); err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("post %d: unknown category %q", i, p.Category)
		}
	}
	return &ds, nil
}

// Seeder writes datasets into the database.
type Seeder struct {
	db *gorm.DB
	// bcrypt cost for demo passwords; tests lower it.
	cost int
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, cost: bcrypt.DefaultCost}
}

// Demo loads the embedded demo dataset. Users and posts that already exist
// are left untouched, so it is safe to run on every start.
func (s *Seeder) Demo(ctx context.Context) (Result, error) {
	ds, err := LoadDemo()
	if err != nil {
		return Result{}, err
	}
	return s.Apply(ctx, ds)
}

// Apply inserts the dataset's missing users and posts in one transaction.
func (s *Seeder) Apply(ctx context.Context, ds *Dataset) (Result, error) {
	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(ds.Users))
		for _, du := range ds.Users {
			user, created, err := s.ensureUser(tx, du)
			if err != nil {
				return fmt.Errorf("user %s: %w", du.Username, err)
			}
			ids[du.Username] = user.ID
			if created {
				res.Users++
			}
		}

		for _, dp := range ds.Posts {
			created, err := ensurePost(tx, ids[dp.Author], dp)
			if err != nil {
				return fmt.Errorf("post %q: %w", dp.Title, err)
			}
			if created {
				res.Posts++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Printf("🌱 demo data: %d users and %d posts created", res.Users, res.Posts)
	return res, nil
}

func (s *Seeder) ensureUser(tx *gorm.DB, du DemoUser) (*models.User, bool, error) {
	var existing models.User
	err := tx.Where("username = ?", du.Username).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(du.Password), s.cost)
	if err != nil {
		return nil, false, err
	}
	country, _ := models.ParseCountry(du.Country)
	user := &models.User{
		Password: string(hashed),
		Name:     du.Name,
		Username: du.Username,
		Country:  country,
		Avatar:   du.Avatar,
		Bio:      du.Bio,
		IsAdmin:  du.Admin,
		IsActive: true,
	}
	if email := strings.ToLower(strings.TrimSpace(du.Email)); email != "" {
		user.Email = &email
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func ensurePost(tx *gorm.DB, authorID uint, dp DemoPost) (bool, error) {
	var count int64
	if err := tx.Model(&models.Post{}).
		Where("user_id = ? AND title = ?", authorID, dp.Title).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	country, _ := models.ParseCountry(dp.Country)
	createdAt := dp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	post := &models.Post{
		UserID:    authorID,
		Country:   country,
		Category:  dp.Category,
		Title:     dp.Title,
		Content:   dp.Content,
		Image:     dp.Image,
		IsActive:  true,
		CreatedAt: createdAt.UTC(),
	}
	return true, tx.Omit(clause.Associations).Create(post).Error
}

// ClearAll removes every post, like, user and stored setting.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🧹 Clearing existing data...")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Like{}, &models.Post{}, &models.User{}, &models.SiteSetting{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
