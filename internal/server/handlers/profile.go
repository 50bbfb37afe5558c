package handlers

import (
	"context"
	"net/http"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/server/reqctx"
	"github.com/maruel/myaccount/internal/storage"
)

// ProfileHandler handles the caller's profile and avatar.
type ProfileHandler struct {
	profiles *storage.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc *Services) *ProfileHandler {
	return &ProfileHandler{profiles: svc.Store.Profiles}
}

// Get returns the profile.
func (h *ProfileHandler) Get(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*models.Profile, error) {
	return h.profiles.Get(ctx, a.ID)
}

// Update replaces the editable profile fields.
func (h *ProfileHandler) Update(ctx context.Context, a *models.Account, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	return h.profiles.Update(ctx, a.ID, req.FullName, req.Bio, req.Phone)
}

// UploadAvatar stores the multipart "avatar" part as the profile picture.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a := reqctx.Account(ctx)
	if a == nil {
		WriteError(ctx, w, apierrors.Unauthorized())
		return
	}
	part, err := formFile(r, "avatar")
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	defer part.Close()
	p, err := h.profiles.SetAvatar(ctx, a.ID, part)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	WriteJSON(ctx, w, p)
}
