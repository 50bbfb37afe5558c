package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// PageInfo fetches page metadata for new bookmarks.
type PageInfo interface {
	Title(ctx context.Context, pageURL string) (string, error)
	Icon(ctx context.Context, pageURL string) ([]byte, string, error)
}

// BookmarkService manages users/{id}/links.json.
type BookmarkService struct {
	c      userCollection[*models.Bookmark]
	pages  PageInfo
	layout Layout
}

// NewBookmarkService creates a bookmark service over store. pages may be nil,
// in which case titles fall back to the host name and no icon is saved.
func NewBookmarkService(store *jsondb.Store, layout Layout, pages PageInfo) *BookmarkService {
	return &BookmarkService{
		c:      userCollection[*models.Bookmark]{store: store, layout: layout, kind: KindBookmarks},
		pages:  pages,
		layout: layout,
	}
}

// List returns the bookmarks of userID, newest first. A non-empty category
// keeps only that category. A non-empty search keeps bookmarks whose title,
// URL or description contains it, ignoring case.
func (s *BookmarkService) List(ctx context.Context, userID int, category, search string) ([]*models.Bookmark, error) {
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	if category = strings.TrimSpace(category); category != "" {
		rows = slices.DeleteFunc(rows, func(b *models.Bookmark) bool { return !strings.EqualFold(b.Category, category) })
	}
	if search = strings.TrimSpace(search); search != "" {
		rows = slices.DeleteFunc(rows, func(b *models.Bookmark) bool {
			return !containsFold(b.Title, search) && !containsFold(b.URL, search) && !containsFold(b.Description, search)
		})
	}
	slices.Reverse(rows)
	return rows, nil
}

// Categories returns the distinct non-empty categories of userID, sorted.
func (s *BookmarkService) Categories(ctx context.Context, userID int) ([]string, error) {
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, b := range rows {
		if b.Category != "" && !slices.Contains(out, b.Category) {
			out = append(out, b.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Get returns one bookmark.
func (s *BookmarkService) Get(ctx context.Context, userID, id int) (*models.Bookmark, error) {
	return s.c.get(ctx, userID, id)
}

// Create stores b. An empty title is fetched from the page, falling back to
// the host name. The site icon is saved best effort.
func (s *BookmarkService) Create(ctx context.Context, userID int, b *models.Bookmark) (*models.Bookmark, error) {
	u, err := checkURL(b.URL)
	if err != nil {
		return nil, err
	}
	b.URL = u.String()
	b.Title = strings.TrimSpace(b.Title)
	b.Description = strings.TrimSpace(b.Description)
	b.Category = strings.TrimSpace(b.Category)
	b.Favicon = ""
	if b.Title == "" {
		b.Title = s.fetchTitle(ctx, u)
	}
	b.AddedAt = time.Now().UTC()
	if err := s.c.insert(ctx, userID, b); err != nil {
		return nil, err
	}
	if name := s.saveIcon(ctx, userID, b); name != "" {
		if updated, err := s.c.update(ctx, userID, b.ID, func(row *models.Bookmark) error {
			row.Favicon = name
			return nil
		}); err == nil {
			b = updated
		}
	}
	return b, nil
}

// Update replaces the editable fields of a bookmark.
func (s *BookmarkService) Update(ctx context.Context, userID, id int, in *models.Bookmark) (*models.Bookmark, error) {
	u, err := checkURL(in.URL)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = u.Host
	}
	return s.c.update(ctx, userID, id, func(b *models.Bookmark) error {
		b.URL = u.String()
		b.Title = title
		b.Description = strings.TrimSpace(in.Description)
		b.Category = strings.TrimSpace(in.Category)
		return nil
	})
}

// Delete removes a bookmark and its saved icon.
func (s *BookmarkService) Delete(ctx context.Context, userID, id int) error {
	b, err := s.c.get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.c.delete(ctx, userID, id); err != nil {
		return err
	}
	if b.Favicon != "" {
		if dir, err := s.uploadDir(userID); err == nil {
			_ = os.Remove(filepath.Join(dir, b.Favicon))
		}
	}
	return nil
}

// Count returns the number of bookmarks of userID.
func (s *BookmarkService) Count(ctx context.Context, userID int) (int, error) {
	return s.c.count(ctx, userID)
}

func (s *BookmarkService) fetchTitle(ctx context.Context, u *url.URL) string {
	if s.pages != nil {
		title, err := s.pages.Title(ctx, u.String())
		if err == nil {
			return title
		}
		slog.DebugContext(ctx, "Failed to fetch page title", "url", u.String(), "err", err)
	}
	return u.Host
}

func (s *BookmarkService) saveIcon(ctx context.Context, userID int, b *models.Bookmark) string {
	if s.pages == nil {
		return ""
	}
	data, ext, err := s.pages.Icon(ctx, b.URL)
	if err != nil {
		slog.DebugContext(ctx, "Failed to fetch site icon", "url", b.URL, "err", err)
		return ""
	}
	dir, err := s.uploadDir(userID)
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		slog.WarnContext(ctx, "Failed to create upload directory", "err", err)
		return ""
	}
	name := fmt.Sprintf("favicon_%d.%s", b.ID, ext)
	if err := jsondb.WriteFileAtomic(filepath.Join(dir, name), data, 0o644); err != nil {
		slog.WarnContext(ctx, "Failed to save site icon", "err", err)
		return ""
	}
	return name
}

func (s *BookmarkService) uploadDir(userID int) (string, error) {
	rel, err := s.layout.UploadDir(userID)
	if err != nil {
		return "", err
	}
	return s.c.store.Abs(rel)
}

func checkURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("url", "is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, invalid("url", "is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalid("url", "must use http or https")
	}
	return u, nil
}
