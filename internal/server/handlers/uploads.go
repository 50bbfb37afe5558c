package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/server/reqctx"
	"github.com/maruel/myaccount/internal/storage"
)

// UploadHandler handles the caller's uploaded files.
type UploadHandler struct {
	uploads *storage.UploadService
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(svc *Services) *UploadHandler {
	return &UploadHandler{uploads: svc.Store.Uploads}
}

// List returns the uploaded files, newest first.
func (h *UploadHandler) List(ctx context.Context, a *models.Account, req *dto.EmptyRequest) (*dto.ListResponse[*models.Upload], error) {
	rows, err := h.uploads.List(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Delete removes a file and its thumbnail.
func (h *UploadHandler) Delete(ctx context.Context, a *models.Account, req *dto.FileRequest) (*dto.OKResponse, error) {
	if err := h.uploads.Delete(ctx, a.ID, req.Name); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}

// Upload stores the multipart "file" part.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a := reqctx.Account(ctx)
	if a == nil {
		WriteError(ctx, w, apierrors.Unauthorized())
		return
	}
	part, err := formFile(r, "file")
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	defer part.Close()
	u, err := h.uploads.Save(ctx, a.ID, part.FileName(), part)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	WriteJSON(ctx, w, u)
}

// Download serves a stored file.
func (h *UploadHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a := reqctx.Account(ctx)
	if a == nil {
		WriteError(ctx, w, apierrors.Unauthorized())
		return
	}
	f, u, err := h.uploads.Open(ctx, a.ID, r.PathValue("name"))
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", u.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": u.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, u.Name, u.Modified, f)
}

// formFile returns the first multipart part named field. The body is
// streamed, never buffered to a temporary file.
func formFile(r *http.Request, field string) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierrors.BadRequest("Expected a multipart/form-data body").Wrap(err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apierrors.MissingField(field)
		}
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return nil, err
			}
			return nil, apierrors.BadRequest("Invalid multipart body").Wrap(err)
		}
		if part.FormName() == field && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}
