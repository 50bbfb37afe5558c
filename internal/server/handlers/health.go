package handlers

import (
	"context"
	"os"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	dataDir string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *Services, cfg *Config) *HealthHandler {
	return &HealthHandler{
		version: cfg.Version,
		dataDir: svc.Store.RootDir(),
	}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, req *dto.EmptyRequest) (*dto.HealthResponse, error) {
	resp := &dto.HealthResponse{Status: "ok", Version: h.version, DataDir: "ok"}
	if fi, err := os.Stat(h.dataDir); err != nil || !fi.IsDir() {
		resp.Status = "degraded"
		resp.DataDir = "unavailable"
	}
	return resp, nil
}

// Schemas returns the JSON Schema of every stored document.
func (h *HealthHandler) Schemas(ctx context.Context, req *dto.EmptyRequest) (*dto.SchemasResponse, error) {
	return &dto.SchemasResponse{Schemas: models.Schemas()}, nil
}
