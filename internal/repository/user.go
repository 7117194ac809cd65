package repository

import (
	"context"
	"errors"

	"worldnews/internal/cache"
	"worldnews/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProfileUpdate carries the profile fields a user may change. Nil means unchanged.
type ProfileUpdate struct {
	Name     *string
	Username *string
	Country  *string
	Avatar   *string
	Bio      *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uint, update ProfileUpdate) (*models.User, error)
	SetActive(ctx context.Context, id uint, active bool) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewUserRepository returns a UserRepository. rdb may be nil, which disables caching.
func NewUserRepository(db *gorm.DB, rdb *redis.Client) UserRepository {
	return &userRepository{db: db, redis: rdb}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("An account with these details already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID is cache-aside. The cached copy has no password hash, so callers
// that need to verify credentials use the lookup-by-contact methods.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, r.redis, "user", cache.UserKey(id), &user, cache.UserTTL, func() error {
		return r.first(ctx, &user, "User", id, "id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.first(ctx, &user, "User", email, "email = ?", email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.first(ctx, &user, "User", phone, "phone = ?", phone); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.first(ctx, &user, "User", username, "username = ?", username); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) first(ctx context.Context, dest *models.User, resource string, id interface{}, query string, args ...interface{}) error {
	if err := r.db.WithContext(ctx).Where(query, args...).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError(resource, id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, update ProfileUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Username != nil {
		fields["username"] = *update.Username
	}
	if update.Country != nil {
		fields["country"] = *update.Country
	}
	if update.Avatar != nil {
		fields["avatar"] = *update.Avatar
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}

	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, models.NewConflictError("Username is already taken")
			}
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("User", id)
		}
		cache.InvalidateUser(ctx, r.redis, id)
		cache.InvalidateFeeds(ctx, r.redis)
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, r.redis, id)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Delete removes the user, their posts and every like row that referenced
// either, keeping each surviving post's counter equal to its like rows.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likedByUser := tx.Model(&models.Like{}).Select("post_id").Where("user_id = ?", id)
		if err := tx.Model(&models.Post{}).
			Where("id IN (?) AND likes > 0", likedByUser).
			UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}

		ownPosts := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("post_id IN (?)", ownPosts).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	cache.InvalidateUser(ctx, r.redis, id)
	cache.InvalidateFeeds(ctx, r.redis)
	return nil
}
