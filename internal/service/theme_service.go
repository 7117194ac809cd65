package service

import (
	"context"
	"encoding/json"
	"sync"

	"worldnews/internal/cache"
	"worldnews/internal/middleware"
	"worldnews/internal/models"
	"worldnews/internal/notifications"
	"worldnews/internal/repository"

	"github.com/redis/go-redis/v9"
)

// AppliedTheme pairs settings with the presentation derived from them. The two
// are always swapped together.
type AppliedTheme struct {
	Settings     models.ThemeSettings `json:"settings"`
	Presentation models.Presentation  `json:"presentation"`
}

func applyTheme(t models.ThemeSettings) *AppliedTheme {
	return &AppliedTheme{Settings: t, Presentation: t.Presentation()}
}

// ThemeService serves the site-wide theme from an in-memory copy backed by
// Redis and the site_settings table.
type ThemeService struct {
	settings  repository.SettingRepository
	redis     *redis.Client
	notifier  *notifications.Notifier
	publisher *notifications.Publisher

	writeMu sync.Mutex
	mu      sync.RWMutex
	current *AppliedTheme
	// gen moves on every invalidation and write; a load that started under an
	// older generation must not be installed.
	gen uint64
}

// maxThemeReloads bounds how often GetTheme retries a load that raced a change.
const maxThemeReloads = 3

// NewThemeService wires a ThemeService. rdb, notifier and publisher may be nil.
func NewThemeService(
	settings repository.SettingRepository,
	rdb *redis.Client,
	notifier *notifications.Notifier,
	publisher *notifications.Publisher,
) *ThemeService {
	return &ThemeService{
		settings:  settings,
		redis:     rdb,
		notifier:  notifier,
		publisher: publisher,
	}
}

// GetTheme returns the last-applied theme, or the default when none was saved.
func (s *ThemeService) GetTheme(ctx context.Context) (*AppliedTheme, error) {
	var applied *AppliedTheme
	for attempt := 0; attempt < maxThemeReloads; attempt++ {
		s.mu.RLock()
		cur, gen := s.current, s.gen
		s.mu.RUnlock()
		if cur != nil {
			return cur, nil
		}

		settings, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		applied = applyTheme(settings)

		s.mu.Lock()
		switch {
		case s.current != nil:
			applied = s.current
			s.mu.Unlock()
			return applied, nil
		case s.gen == gen:
			s.current = applied
			s.mu.Unlock()
			return applied, nil
		}
		s.mu.Unlock()
	}
	// Changes kept landing mid-load; serve the latest read without caching it.
	return applied, nil
}

// UpdateTheme merges patch into the current settings, persists the merged
// value and only then applies it.
func (s *ThemeService) UpdateTheme(ctx context.Context, actor Actor, patch models.ThemePatch) (*AppliedTheme, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.GetTheme(ctx)
	}
	if err := patch.Validate(); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.GetTheme(ctx)
	if err != nil {
		return nil, err
	}
	merged := current.Settings.Merge(patch)
	if err := merged.Validate(); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.settings.Put(ctx, cache.ThemeKey, string(raw)); err != nil {
		return nil, err
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, cache.ThemeKey, raw, 0).Err(); err != nil {
			middleware.Logger.WarnContext(ctx, "theme: failed to write redis copy, dropping it", "error", err)
			cache.Invalidate(ctx, s.redis, cache.ThemeKey)
		}
	}

	applied := applyTheme(merged)
	s.mu.Lock()
	s.current = applied
	s.gen++
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	if err := s.notifier.PublishSettingsChanged(bg, cache.ThemeKey); err != nil {
		middleware.Logger.WarnContext(ctx, "theme: failed to publish change", "error", err)
	}
	if s.publisher != nil {
		s.publisher.PublishBroadcast(bg, notifications.EventThemeUpdated, applied)
	}
	return applied, nil
}

// Invalidate drops the in-memory copy so the next read goes to the store.
func (s *ThemeService) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
}

// Watch drops the in-memory copy whenever any instance reports a theme change.
// The returned function stops watching.
func (s *ThemeService) Watch(ctx context.Context) (func(), error) {
	return s.notifier.Subscribe(ctx, notifications.SettingsChannel, func(key string) {
		if key == cache.ThemeKey {
			s.Invalidate()
		}
	})
}

func (s *ThemeService) load(ctx context.Context) (models.ThemeSettings, error) {
	var settings models.ThemeSettings
	if found, err := cache.GetJSON(ctx, s.redis, cache.ThemeKey, &settings); err == nil && found {
		if settings.Validate() == nil {
			return settings, nil
		}
	}

	raw, found, err := s.settings.Get(ctx, cache.ThemeKey)
	if err != nil {
		return models.ThemeSettings{}, err
	}
	if !found {
		return models.DefaultTheme(), nil
	}

	settings = models.ThemeSettings{}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil || settings.Validate() != nil {
		middleware.Logger.WarnContext(ctx, "theme: stored settings are unreadable, using defaults")
		return models.DefaultTheme(), nil
	}
	// NX: a copy stored by a concurrent writer is newer than this read.
	if s.redis != nil {
		if err := s.redis.SetNX(ctx, cache.ThemeKey, raw, 0).Err(); err != nil {
			middleware.Logger.WarnContext(ctx, "theme: failed to backfill redis copy", "error", err)
		}
	}
	return settings, nil
}
