package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"worldnews/internal/models"
	"worldnews/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// FactoryOptions controls generated data.
type FactoryOptions struct {
	// Seed makes generated content reproducible when non-zero.
	Seed int64
	// LikeRate is the chance, between 0 and 1, that a reader likes a given post.
	LikeRate float64
}

// Factory builds reader accounts and engagement for development databases.
type Factory struct {
	db    *gorm.DB
	posts repository.PostRepository
	faker *gofakeit.Faker
	rng   *rand.Rand
	opts  FactoryOptions
	cost  int
}

// NewFactory creates a Factory. Likes go through posts so every post's
// counter keeps matching its like rows.
func NewFactory(db *gorm.DB, posts repository.PostRepository, opts FactoryOptions) *Factory {
	if opts.LikeRate <= 0 {
		opts.LikeRate = 0.3
	}
	return &Factory{
		db:    db,
		posts: posts,
		faker: gofakeit.New(opts.Seed),
		rng:   rand.New(rand.NewSource(opts.Seed)),
		opts:  opts,
		cost:  bcrypt.DefaultCost,
	}
}

// CreateReader persists a random active member. Overrides run before insert.
func (f *Factory) CreateReader(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), f.cost)
	if err != nil {
		return nil, err
	}

	first, last := f.faker.FirstName(), f.faker.LastName()
	handle := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, strings.ToLower(clip(first, 10)+"_"+clip(last, 10)))
	handle = fmt.Sprintf("%s%d", strings.Trim(handle, "_"), f.faker.Number(10, 9999))
	email := handle + "@" + f.faker.DomainName()
	country := models.Countries[f.rng.Intn(len(models.Countries))]

	user := &models.User{
		Email:    &email,
		Password: string(hashed),
		Name:     first + " " + last,
		Username: handle,
		Country:  country.Code,
		Avatar:   country.Flag,
		Bio:      f.faker.Sentence(8),
		IsActive: true,
	}
	for _, o := range overrides {
		o(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Engage has each reader like each active post with probability LikeRate.
// It returns the number of likes recorded.
func (f *Factory) Engage(ctx context.Context, readers []*models.User) (int, error) {
	posts, err := f.posts.List(ctx, repository.PostFilter{Limit: 1000})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, post := range posts {
		for _, reader := range readers {
			if f.rng.Float64() >= f.opts.LikeRate {
				continue
			}
			liked, _, err := f.posts.ToggleLike(ctx, post.ID, reader.ID)
			if err != nil {
				return total, fmt.Errorf("like post %d: %w", post.ID, err)
			}
			if !liked {
				// already liked on an earlier run; put it back
				if _, _, err := f.posts.ToggleLike(ctx, post.ID, reader.ID); err != nil {
					return total, err
				}
			}
			total++
		}
	}
	return total, nil
}

// Readers creates n readers and spreads likes across existing posts.
func (f *Factory) Readers(ctx context.Context, n int) ([]*models.User, int, error) {
	readers := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := f.CreateReader(ctx)
		if err != nil {
			return readers, 0, err
		}
		readers = append(readers, u)
	}
	likes, err := f.Engage(ctx, readers)
	return readers, likes, err
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
