package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// BookmarkHandler handles the caller's bookmarks.
type BookmarkHandler struct {
	bookmarks *storage.BookmarkService
}

// NewBookmarkHandler creates a new bookmark handler.
func NewBookmarkHandler(svc *Services) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: svc.Store.Bookmarks}
}

// List returns the bookmarks, optionally filtered by category and search
// text.
func (h *BookmarkHandler) List(ctx context.Context, a *models.Account, req *dto.ListBookmarksRequest) (*dto.ListResponse[*models.Bookmark], error) {
	rows, err := h.bookmarks.List(ctx, a.ID, req.Category, req.Search)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Categories returns the distinct categories of the caller's bookmarks.
func (h *BookmarkHandler) Categories(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*dto.ListResponse[string], error) {
	rows, err := h.bookmarks.Categories(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Get returns one bookmark.
func (h *BookmarkHandler) Get(ctx context.Context, a *models.Account, req *dto.IDRequest) (*models.Bookmark, error) {
	return h.bookmarks.Get(ctx, a.ID, req.ID)
}

// Create saves a link. An empty title is fetched from the page.
func (h *BookmarkHandler) Create(ctx context.Context, a *models.Account, req *dto.BookmarkRequest) (*models.Bookmark, error) {
	return h.bookmarks.Create(ctx, a.ID, bookmarkFrom(req))
}

// Update replaces the fields of a bookmark.
func (h *BookmarkHandler) Update(ctx context.Context, a *models.Account, req *dto.BookmarkRequest) (*models.Bookmark, error) {
	return h.bookmarks.Update(ctx, a.ID, req.ID, bookmarkFrom(req))
}

// Delete removes a bookmark and its icon.
func (h *BookmarkHandler) Delete(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.OKResponse, error) {
	if err := h.bookmarks.Delete(ctx, a.ID, req.ID); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}

func bookmarkFrom(req *dto.BookmarkRequest) *models.Bookmark {
	return &models.Bookmark{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
}
