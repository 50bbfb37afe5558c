package storage

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

const dateLayout = time.DateOnly

// TodoStatus filters List.
type TodoStatus string

// Todo filters.
const (
	TodoAll  TodoStatus = ""
	TodoOpen TodoStatus = "open"
	TodoDone TodoStatus = "done"
)

// TodoService manages users/{id}/todo.json.
type TodoService struct {
	c userCollection[*models.Todo]
}

// NewTodoService creates a to-do service over store.
func NewTodoService(store *jsondb.Store, layout Layout) *TodoService {
	return &TodoService{c: userCollection[*models.Todo]{store: store, layout: layout, kind: KindTodos}}
}

// List returns the to-dos of userID in stored order.
func (s *TodoService) List(ctx context.Context, userID int, status TodoStatus) ([]*models.Todo, error) {
	switch status {
	case TodoAll, TodoOpen, TodoDone:
	default:
		return nil, invalid("status", "must be open or done")
	}
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status != TodoAll {
		want := status == TodoDone
		rows = slices.DeleteFunc(rows, func(t *models.Todo) bool { return t.Completed != want })
	}
	return rows, nil
}

// Get returns one to-do.
func (s *TodoService) Get(ctx context.Context, userID, id int) (*models.Todo, error) {
	return s.c.get(ctx, userID, id)
}

// Create stores a new open to-do. dueDate is empty or YYYY-MM-DD.
func (s *TodoService) Create(ctx context.Context, userID int, title, description, dueDate string) (*models.Todo, error) {
	title, dueDate, err := checkTodo(title, dueDate)
	if err != nil {
		return nil, err
	}
	t := &models.Todo{
		Title:       title,
		Description: strings.TrimSpace(description),
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.c.insert(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the title, description and due date of a to-do.
func (s *TodoService) Update(ctx context.Context, userID, id int, title, description, dueDate string) (*models.Todo, error) {
	title, dueDate, err := checkTodo(title, dueDate)
	if err != nil {
		return nil, err
	}
	return s.c.update(ctx, userID, id, func(t *models.Todo) error {
		t.Title = title
		t.Description = strings.TrimSpace(description)
		t.DueDate = dueDate
		return nil
	})
}

// SetCompleted marks a to-do done or open again.
func (s *TodoService) SetCompleted(ctx context.Context, userID, id int, completed bool) (*models.Todo, error) {
	return s.c.update(ctx, userID, id, func(t *models.Todo) error {
		if t.Completed == completed {
			return nil
		}
		t.Completed = completed
		if completed {
			now := time.Now().UTC()
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
		return nil
	})
}

// Delete removes a to-do.
func (s *TodoService) Delete(ctx context.Context, userID, id int) error {
	return s.c.delete(ctx, userID, id)
}

// CountOpen returns the number of to-dos not completed.
func (s *TodoService) CountOpen(ctx context.Context, userID int) (int, error) {
	rows, err := s.List(ctx, userID, TodoOpen)
	return len(rows), err
}

func checkTodo(title, dueDate string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", invalid("title", "is required")
	}
	dueDate = strings.TrimSpace(dueDate)
	if dueDate != "" {
		if _, err := time.Parse(dateLayout, dueDate); err != nil {
			return "", "", invalid("opt_due_date", "must be YYYY-MM-DD")
		}
	}
	return title, dueDate, nil
}
