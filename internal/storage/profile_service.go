package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/thumbnail"
)

const (
	// DefaultMaxAvatarBytes bounds avatar uploads.
	DefaultMaxAvatarBytes = 2 << 20
	avatarSize            = 200
	avatarThumb           = "profile_thumb.jpg"
)

// ProfileService manages profiles/profile_{id}.json and the avatar files.
type ProfileService struct {
	store  *jsondb.Store
	layout Layout

	// MaxAvatarBytes bounds SetAvatar input.
	MaxAvatarBytes int64
}

// NewProfileService creates a profile service over store.
func NewProfileService(store *jsondb.Store, layout Layout) *ProfileService {
	return &ProfileService{store: store, layout: layout, MaxAvatarBytes: DefaultMaxAvatarBytes}
}

// Get returns the profile of userID, or an empty one when none was saved.
func (s *ProfileService) Get(ctx context.Context, userID int) (*models.Profile, error) {
	p, err := s.layout.PathFor(userID, KindProfile)
	if err != nil {
		return nil, err
	}
	out := models.Profile{UserID: userID}
	if _, err := s.store.Read(ctx, p, &out); err != nil {
		return nil, err
	}
	out.UserID = userID
	return &out, nil
}

// Init writes an empty profile unless one exists.
func (s *ProfileService) Init(ctx context.Context, userID int) error {
	p, err := s.layout.PathFor(userID, KindProfile)
	if err != nil {
		return err
	}
	out := models.Profile{UserID: userID}
	return s.store.Update(ctx, p, &out, func(found bool) error {
		if found {
			return jsondb.ErrSkipWrite
		}
		return nil
	})
}

// Update replaces the editable profile fields.
func (s *ProfileService) Update(ctx context.Context, userID int, fullName, bio, phone string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if len(fullName) > 100 {
		return nil, invalid("full_name", "must be at most 100 characters")
	}
	if len(bio) > 2000 {
		return nil, invalid("bio", "must be at most 2000 characters")
	}
	return s.update(ctx, userID, func(pr *models.Profile) {
		pr.FullName = fullName
		pr.Bio = strings.TrimSpace(bio)
		pr.Phone = strings.TrimSpace(phone)
	})
}

// SetAvatar stores a JPEG or PNG picture as the avatar, with a square
// thumbnail that becomes the profile's avatar.
func (s *ProfileService) SetAvatar(ctx context.Context, userID int, r io.Reader) (*models.Profile, error) {
	limit := s.MaxAvatarBytes
	if limit <= 0 {
		limit = DefaultMaxAvatarBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("avatar larger than %d bytes: %w", limit, ErrTooLarge)
	}
	mt := mimetype.Detect(data)
	var ext string
	switch {
	case mt.Is("image/jpeg"):
		ext = "jpg"
	case mt.Is("image/png"):
		ext = "png"
	default:
		return nil, invalid("avatar", "only JPEG and PNG images are allowed, got %s", mt.String())
	}
	var thumb bytes.Buffer
	if err := thumbnail.Square(bytes.NewReader(data), &thumb, avatarSize); err != nil {
		return nil, invalid("avatar", "cannot decode image: %v", err)
	}
	rel, err := s.layout.UploadDir(userID)
	if err != nil {
		return nil, err
	}
	dir, err := s.store.Abs(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		return nil, &jsondb.IOError{Op: "create directory", Path: dir, Err: err}
	}
	if err := jsondb.WriteFileAtomic(filepath.Join(dir, "profile."+ext), data, 0o644); err != nil {
		return nil, err
	}
	if err := jsondb.WriteFileAtomic(filepath.Join(dir, avatarThumb), thumb.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(pr *models.Profile) {
		pr.Avatar = avatarThumb
	})
}

func (s *ProfileService) update(ctx context.Context, userID int, fn func(*models.Profile)) (*models.Profile, error) {
	p, err := s.layout.PathFor(userID, KindProfile)
	if err != nil {
		return nil, err
	}
	out := models.Profile{UserID: userID}
	err = s.store.Update(ctx, p, &out, func(bool) error {
		out.UserID = userID
		fn(&out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
