package storage

import (
	"context"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// SettingsService manages users/{id}/settings.json.
type SettingsService struct {
	store  *jsondb.Store
	layout Layout
}

// NewSettingsService creates a settings service over store.
func NewSettingsService(store *jsondb.Store, layout Layout) *SettingsService {
	return &SettingsService{store: store, layout: layout}
}

// Get returns the stored settings merged over the defaults.
func (s *SettingsService) Get(ctx context.Context, userID int) (*models.Settings, error) {
	p, err := s.layout.PathFor(userID, KindSettings)
	if err != nil {
		return nil, err
	}
	out := models.DefaultSettings()
	if _, err := s.store.Read(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies fn to the current settings and saves the result.
func (s *SettingsService) Update(ctx context.Context, userID int, fn func(*models.Settings) error) (*models.Settings, error) {
	p, err := s.layout.PathFor(userID, KindSettings)
	if err != nil {
		return nil, err
	}
	out := models.DefaultSettings()
	err = s.store.Update(ctx, p, &out, func(bool) error {
		if err := fn(&out); err != nil {
			return err
		}
		if err := checkSettings(&out); err != nil {
			return err
		}
		now := time.Now().UTC()
		out.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func checkSettings(st *models.Settings) error {
	switch st.Theme {
	case models.ThemeLight, models.ThemeDark:
	default:
		return invalid("theme", "must be light or dark")
	}
	switch st.Language {
	case models.LanguageEnglish, models.LanguageBangla:
	default:
		return invalid("language", "must be en or bn")
	}
	return nil
}
