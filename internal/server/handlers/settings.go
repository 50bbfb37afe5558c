package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// SettingsHandler handles the caller's preferences.
type SettingsHandler struct {
	settings *storage.SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc *Services) *SettingsHandler {
	return &SettingsHandler{settings: svc.Store.Settings}
}

// Get returns the settings merged over the defaults.
func (h *SettingsHandler) Get(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*models.Settings, error) {
	return h.settings.Get(ctx, a.ID)
}

// Update changes the fields present in the request.
func (h *SettingsHandler) Update(ctx context.Context, a *models.Account, req *dto.UpdateSettingsRequest) (*models.Settings, error) {
	return h.settings.Update(ctx, a.ID, func(st *models.Settings) error {
		if req.Theme != "" {
			st.Theme = models.Theme(req.Theme)
		}
		if req.Language != "" {
			st.Language = models.Language(req.Language)
		}
		if p := req.Privacy; p != nil {
			if p.ShowEmail != nil {
				st.Privacy.ShowEmail = *p.ShowEmail
			}
			if p.Newsletter != nil {
				st.Privacy.Newsletter = *p.Newsletter
			}
		}
		if req.TwoFactorEnabled != nil {
			st.TwoFactorEnabled = *req.TwoFactorEnabled
		}
		return nil
	})
}
