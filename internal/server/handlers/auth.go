package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	store             *storage.FileStore
	tokens            *Tokens
	allowRegistration bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services, cfg *Config) *AuthHandler {
	return &AuthHandler{
		store:             svc.Store,
		tokens:            svc.Tokens,
		allowRegistration: cfg.AllowRegistration,
	}
}

// Register creates a user account and logs it in.
func (h *AuthHandler) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !h.allowRegistration {
		return nil, apierrors.Forbidden("Registration is disabled")
	}
	a, err := h.store.Register(ctx, req.Username, req.Email, req.Password, models.RoleUser)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Account registered", "id", a.ID, "username", a.Username)
	return h.authResponse(a)
}

// Login verifies the credentials and returns a session token.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	a, err := h.store.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	return h.authResponse(a)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*dto.Account, error) {
	return dto.AccountFrom(a), nil
}

// ChangePassword replaces the caller's password after checking the current
// one.
func (h *AuthHandler) ChangePassword(ctx context.Context, a *models.Account, req *dto.ChangePasswordRequest) (*dto.OKResponse, error) {
	if err := h.store.ChangePassword(ctx, a.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Password changed", "id", a.ID)
	return &dto.OKResponse{OK: true}, nil
}

func (h *AuthHandler) authResponse(a *models.Account) (*dto.AuthResponse, error) {
	token, exp, err := h.tokens.Issue(a)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to generate token", err)
	}
	return &dto.AuthResponse{Token: token, ExpiresAt: exp, Account: dto.AccountFrom(a)}, nil
}
