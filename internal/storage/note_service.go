package storage

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// NoteService manages users/{id}/notes.json.
type NoteService struct {
	c userCollection[*models.Note]
}

// NewNoteService creates a note service over store.
func NewNoteService(store *jsondb.Store, layout Layout) *NoteService {
	return &NoteService{c: userCollection[*models.Note]{store: store, layout: layout, kind: KindNotes}}
}

// List returns the notes of userID, most recently updated first. A non-empty
// tag keeps only notes carrying it. A non-empty search keeps notes whose
// title or content contains it, ignoring case.
func (s *NoteService) List(ctx context.Context, userID int, tag, search string) ([]*models.Note, error) {
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tag = normalizeTag(tag); tag != "" {
		rows = slices.DeleteFunc(rows, func(n *models.Note) bool { return !slices.Contains(n.Tags, tag) })
	}
	if search = strings.TrimSpace(search); search != "" {
		rows = slices.DeleteFunc(rows, func(n *models.Note) bool {
			return !containsFold(n.Title, search) && !containsFold(n.ContentMarkdown, search)
		})
	}
	slices.SortStableFunc(rows, func(a, b *models.Note) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return rows, nil
}

// TagCount is the number of notes carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Tags returns every tag used by the notes of userID with its number of
// notes, sorted by tag.
func (s *NoteService) Tags(ctx context.Context, userID int) ([]TagCount, error) {
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, n := range rows {
		for _, t := range n.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	slices.SortFunc(out, func(a, b TagCount) int { return strings.Compare(a.Tag, b.Tag) })
	return out, nil
}

// Get returns one note.
func (s *NoteService) Get(ctx context.Context, userID, id int) (*models.Note, error) {
	return s.c.get(ctx, userID, id)
}

// Create stores a new note.
func (s *NoteService) Create(ctx context.Context, userID int, title, content string, tags []string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	now := time.Now().UTC()
	n := &models.Note{
		Title:           title,
		ContentMarkdown: content,
		Tags:            normalizeTags(tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.c.insert(ctx, userID, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update replaces the title, content and tags of a note.
func (s *NoteService) Update(ctx context.Context, userID, id int, title, content string, tags []string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	return s.c.update(ctx, userID, id, func(n *models.Note) error {
		n.Title = title
		n.ContentMarkdown = content
		n.Tags = normalizeTags(tags)
		n.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, userID, id int) error {
	return s.c.delete(ctx, userID, id)
}

func normalizeTag(tag string) string {
	return strings.TrimSpace(tag)
}

// normalizeTags trims and dedups tags, keeping the first
// occurrence order. It never returns nil.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = normalizeTag(t); t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// containsFold reports whether substr is within s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
