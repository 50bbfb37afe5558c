package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

const (
	statsRecentEntries = 10
	defaultLogsLimit   = 50
)

// AdminHandler handles account administration. Every route requires the
// admin role.
type AdminHandler struct {
	admin    *storage.AdminService
	accounts *storage.AccountService
	audit    *storage.AuditLog
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *Services) *AdminHandler {
	return &AdminHandler{
		admin:    svc.Store.Admin,
		accounts: svc.Store.Accounts,
		audit:    svc.Store.Audit,
	}
}

// Stats returns the account counts and the latest audit entries.
func (h *AdminHandler) Stats(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*storage.Stats, error) {
	return h.admin.Stats(ctx, statsRecentEntries)
}

// ListUsers returns every account, deleted ones included.
func (h *AdminHandler) ListUsers(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*dto.ListResponse[*dto.Account], error) {
	rows, err := h.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewList(dto.AccountsFrom(rows)), nil
}

// ResetPassword assigns a temporary password to another account.
func (h *AdminHandler) ResetPassword(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.ResetPasswordResponse, error) {
	pw, err := h.admin.ResetPassword(ctx, a.ID, req.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ResetPasswordResponse{UserID: req.ID, TemporaryPassword: pw}, nil
}

// DeleteUser archives and soft-deletes another account.
func (h *AdminHandler) DeleteUser(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.OKResponse, error) {
	if err := h.admin.DeleteUser(ctx, a.ID, req.ID); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}

// Logs returns the most recent audit entries.
func (h *AdminHandler) Logs(ctx context.Context, a *models.Account, req *dto.ListLogsRequest) (*dto.ListResponse[*models.AuditEntry], error) {
	n := req.Limit
	if n == 0 {
		n = defaultLogsLimit
	}
	rows, err := h.audit.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}
