package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/thumbnail"
)

const (
	// DefaultMaxUploadBytes bounds file uploads.
	DefaultMaxUploadBytes = 5 << 20
	thumbMaxSize          = 300
	filePrefix            = "file_"
	thumbPrefix           = "thumb_"
)

var allowedExtensions = []string{"jpg", "jpeg", "png", "gif", "pdf", "docx"}

var allowedMIME = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// UploadService stores files under users/{id}/uploads.
type UploadService struct {
	store  *jsondb.Store
	layout Layout

	// MaxBytes bounds a single upload.
	MaxBytes int64
}

// NewUploadService creates an upload service over store.
func NewUploadService(store *jsondb.Store, layout Layout) *UploadService {
	return &UploadService{store: store, layout: layout, MaxBytes: DefaultMaxUploadBytes}
}

// Dir returns the absolute upload directory of userID.
func (s *UploadService) Dir(userID int) (string, error) {
	rel, err := s.layout.UploadDir(userID)
	if err != nil {
		return "", err
	}
	return s.store.Abs(rel)
}

// Save validates and stores the content of r uploaded as filename. The file
// is stored as file_<uuid>.<ext>; images also get a thumb_ thumbnail.
func (s *UploadService) Save(ctx context.Context, userID int, filename string, r io.Reader) (*models.Upload, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains(allowedExtensions, ext) {
		return nil, invalid("file", "extension %q is not allowed", ext)
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("upload larger than %d bytes: %w", limit, ErrTooLarge)
	}
	if len(data) == 0 {
		return nil, invalid("file", "is empty")
	}
	mt := mimetype.Detect(data)
	if !slices.ContainsFunc(allowedMIME, mt.Is) {
		return nil, invalid("file", "content type %s is not allowed", mt.String())
	}
	dir, err := s.Dir(userID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		return nil, &jsondb.IOError{Op: "create directory", Path: dir, Err: err}
	}
	name := filePrefix + uuid.NewString() + "." + ext
	p := filepath.Join(dir, name)
	if err := jsondb.WriteFileAtomic(p, data, 0o644); err != nil {
		return nil, err
	}
	if strings.HasPrefix(mt.String(), "image/") {
		if err := thumbnail.FitFile(p, filepath.Join(dir, thumbName(name)), thumbMaxSize); err != nil {
			slog.WarnContext(ctx, "Failed to create thumbnail", "name", name, "err", err)
		}
	}
	return s.stat(dir, name)
}

// List returns the uploaded files of userID, newest first.
func (s *UploadService) List(ctx context.Context, userID int) ([]*models.Upload, error) {
	dir, err := s.Dir(userID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Upload{}, nil
		}
		return nil, &jsondb.IOError{Op: "list", Path: dir, Err: err}
	}
	out := make([]*models.Upload, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		u, err := s.stat(dir, e.Name())
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable upload", "name", e.Name(), "err", err)
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *models.Upload) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Open returns a stored file of userID for reading. name may designate an
// upload, a thumbnail, a site icon or the avatar.
func (s *UploadService) Open(ctx context.Context, userID int, name string) (*os.File, *models.Upload, error) {
	if err := checkStoredName(name); err != nil {
		return nil, nil, err
	}
	dir, err := s.Dir(userID)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.stat(dir, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(dir, name)) //nolint:gosec // G304: name is checked
	if err != nil {
		return nil, nil, &jsondb.IOError{Op: "open", Path: name, Err: err}
	}
	return f, u, nil
}

// Delete removes an upload and its thumbnail.
func (s *UploadService) Delete(ctx context.Context, userID int, name string) error {
	if err := checkStoredName(name); err != nil {
		return err
	}
	if !strings.HasPrefix(name, filePrefix) {
		return invalid("name", "only uploaded files can be deleted")
	}
	dir, err := s.Dir(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("upload %q: %w", name, ErrNotFound)
		}
		return &jsondb.IOError{Op: "remove", Path: name, Err: err}
	}
	if err := os.Remove(filepath.Join(dir, thumbName(name))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "Failed to remove thumbnail", "name", name, "err", err)
	}
	return nil
}

// Count returns the number of uploaded files of userID.
func (s *UploadService) Count(ctx context.Context, userID int) (int, error) {
	l, err := s.List(ctx, userID)
	return len(l), err
}

func (s *UploadService) stat(dir, name string) (*models.Upload, error) {
	p := filepath.Join(dir, name)
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("upload %q: %w", name, ErrNotFound)
		}
		return nil, &jsondb.IOError{Op: "stat", Path: name, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("upload %q: %w", name, ErrNotFound)
	}
	u := &models.Upload{Name: name, Size: fi.Size(), Modified: fi.ModTime().UTC()}
	if mt, err := mimetype.DetectFile(p); err == nil {
		u.MimeType = mt.String()
	}
	if strings.HasPrefix(name, filePrefix) {
		if _, err := os.Stat(filepath.Join(dir, thumbName(name))); err == nil {
			u.Thumbnail = thumbName(name)
		}
	}
	return u, nil
}

func thumbName(name string) string {
	return thumbPrefix + strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

func checkStoredName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !filepath.IsLocal(name) {
		return invalid("name", "invalid file name %q", name)
	}
	return nil
}
