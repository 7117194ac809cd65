// Package repository provides the data access layer.
package repository

import (
	"context"
	"errors"
	"time"

	"worldnews/internal/cache"
	"worldnews/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows List. Zero values mean "any"; a zero Limit returns every match.
type PostFilter struct {
	Country         string
	Category        models.Category
	UserID          uint
	IncludeInactive bool
	Limit           int
	Offset          int
}

// public reports whether the filter describes a cacheable public feed page.
func (f PostFilter) public() bool {
	return f.UserID == 0 && !f.IncludeInactive && f.Offset == 0
}

// PostUpdate carries the content fields an owner may change. Nil means unchanged.
type PostUpdate struct {
	Title    *string
	Content  *string
	Category *models.Category
	Image    *string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	Update(ctx context.Context, id uint, update PostUpdate) (*models.Post, error)
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (liked bool, likes int, err error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	CountLikeRows(ctx context.Context, postID uint) (int64, error)
}

type postRepository struct {
	db    *gorm.DB
	redis *redis.Client
	now   func() time.Time
}

// NewPostRepository creates a post repository. rdb may be nil, which disables feed caching.
func NewPostRepository(db *gorm.DB, rdb *redis.Client) PostRepository {
	return &postRepository{db: db, redis: rdb, now: time.Now}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateFeeds(ctx, r.redis)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, mapPostError(err, id)
	}
	fillAuthors([]*models.Post{&post})
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	if filter.Limit < 0 {
		filter.Limit = 0
	}

	var posts []*models.Post
	load := func(limit int) error {
		q := r.db.WithContext(ctx).Preload("Author")
		if !filter.IncludeInactive {
			q = q.Where("is_active = ?", true)
		}
		if filter.Country != "" {
			q = q.Where("country = ?", filter.Country)
		}
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.UserID != 0 {
			q = q.Where("user_id = ?", filter.UserID)
		}
		q = q.Order("created_at DESC").Order("id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
		if err := q.Find(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		fillAuthors(posts)
		return nil
	}

	if !filter.public() || r.redis == nil {
		return posts, load(filter.Limit)
	}

	// The cached entry is the whole feed; callers asking for fewer get a prefix.
	key := cache.FeedKey(ctx, r.redis, filter.Country, string(filter.Category))
	if err := cache.Aside(ctx, r.redis, "feed", key, &posts, cache.FeedTTL, func() error { return load(0) }); err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, update PostUpdate) (*models.Post, error) {
	fields := map[string]interface{}{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Content != nil {
		fields["content"] = *update.Content
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if update.Image != nil {
		fields["image"] = *update.Image
	}

	if len(fields) > 0 {
		fields["updated_at"] = r.now()
		res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("Post", id)
		}
		cache.InvalidateFeeds(ctx, r.redis)
	}
	return r.GetByID(ctx, id)
}

func (r *postRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": r.now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidateFeeds(ctx, r.redis)
	return nil
}

// Delete removes the post together with its like rows.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	cache.InvalidateFeeds(ctx, r.redis)
	return nil
}

// ToggleLike flips the user's membership in the post's like set and moves the
// counter with it inside one transaction. The membership write decides the
// direction: a delete that removed a row is an unlike, an insert that was not a
// no-op is a like. Concurrent toggles therefore never double-count.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	var liked bool
	var likes []int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return mapPostError(err, postID)
		}

		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND likes > 0", postID).
				UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error; err != nil {
				return err
			}
		} else {
			liked = true
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{PostID: postID, UserID: userID, CreatedAt: r.now()})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).
					Where("id = ?", postID).
					UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).Pluck("likes", &likes).Error
	})
	if err != nil {
		return false, 0, asAppError(err)
	}

	cache.InvalidateFeeds(ctx, r.redis)
	if len(likes) == 0 {
		return liked, 0, nil
	}
	return liked, likes[0], nil
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if userID == 0 || len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *postRepository) CountLikeRows(ctx context.Context, postID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// fillAuthors strips contact details from authors and substitutes a placeholder
// for owners whose user row is missing.
func fillAuthors(posts []*models.Post) {
	for _, p := range posts {
		if p.Author.ID == 0 {
			p.Author = models.PlaceholderAuthor(p.UserID, p.Country)
			continue
		}
		p.Author = p.Author.Public()
	}
}

func mapPostError(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("Post", id)
	}
	return models.NewInternalError(err)
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
