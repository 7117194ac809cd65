package repository

import (
	"context"
	"errors"

	"worldnews/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository stores process-wide settings documents by key.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository returns a SettingRepository backed by the site_settings table.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var s models.SiteSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, models.NewInternalError(err)
	}
	return s.Value, true, nil
}

// Put replaces the whole value under key in a single statement.
func (r *settingRepository) Put(ctx context.Context, key, value string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.SiteSetting{Key: key, Value: value}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
