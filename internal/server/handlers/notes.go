package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// NoteHandler handles the caller's notes.
type NoteHandler struct {
	notes *storage.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(svc *Services) *NoteHandler {
	return &NoteHandler{notes: svc.Store.Notes}
}

// List returns the notes, optionally filtered by tag and search text.
func (h *NoteHandler) List(ctx context.Context, a *models.Account, req *dto.ListNotesRequest) (*dto.ListResponse[*models.Note], error) {
	rows, err := h.notes.List(ctx, a.ID, req.Tag, req.Search)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Tags returns the tags of the caller's notes with their counts.
func (h *NoteHandler) Tags(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*dto.ListResponse[storage.TagCount], error) {
	rows, err := h.notes.Tags(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Get returns one note.
func (h *NoteHandler) Get(ctx context.Context, a *models.Account, req *dto.IDRequest) (*models.Note, error) {
	return h.notes.Get(ctx, a.ID, req.ID)
}

// Create adds a note.
func (h *NoteHandler) Create(ctx context.Context, a *models.Account, req *dto.NoteRequest) (*models.Note, error) {
	return h.notes.Create(ctx, a.ID, req.Title, req.ContentMarkdown, req.Tags)
}

// Update replaces the title, content and tags of a note.
func (h *NoteHandler) Update(ctx context.Context, a *models.Account, req *dto.NoteRequest) (*models.Note, error) {
	return h.notes.Update(ctx, a.ID, req.ID, req.Title, req.ContentMarkdown, req.Tags)
}

// Delete removes a note.
func (h *NoteHandler) Delete(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.OKResponse, error) {
	if err := h.notes.Delete(ctx, a.ID, req.ID); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}
