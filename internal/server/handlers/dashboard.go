package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// DashboardHandler summarizes the caller's documents.
type DashboardHandler struct {
	store *storage.FileStore
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *Services) *DashboardHandler {
	return &DashboardHandler{store: svc.Store}
}

// Get returns the document counts.
func (h *DashboardHandler) Get(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*storage.Dashboard, error) {
	return h.store.Dashboard(ctx, a.ID)
}
