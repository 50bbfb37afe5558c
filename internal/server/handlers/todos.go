package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// TodoHandler handles the caller's to-do list.
type TodoHandler struct {
	todos *storage.TodoService
}

// NewTodoHandler creates a new to-do handler.
func NewTodoHandler(svc *Services) *TodoHandler {
	return &TodoHandler{todos: svc.Store.Todos}
}

// List returns the to-dos, optionally filtered by status.
func (h *TodoHandler) List(ctx context.Context, a *models.Account, req *dto.ListTodosRequest) (*dto.ListResponse[*models.Todo], error) {
	rows, err := h.todos.List(ctx, a.ID, storage.TodoStatus(req.Status))
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Get returns one to-do.
func (h *TodoHandler) Get(ctx context.Context, a *models.Account, req *dto.IDRequest) (*models.Todo, error) {
	return h.todos.Get(ctx, a.ID, req.ID)
}

// Create adds a to-do.
func (h *TodoHandler) Create(ctx context.Context, a *models.Account, req *dto.TodoRequest) (*models.Todo, error) {
	return h.todos.Create(ctx, a.ID, req.Title, req.Description, req.DueDate)
}

// Update replaces the title, description and due date of a to-do.
func (h *TodoHandler) Update(ctx context.Context, a *models.Account, req *dto.TodoRequest) (*models.Todo, error) {
	return h.todos.Update(ctx, a.ID, req.ID, req.Title, req.Description, req.DueDate)
}

// Complete marks a to-do done or open again.
func (h *TodoHandler) Complete(ctx context.Context, a *models.Account, req *dto.CompleteTodoRequest) (*models.Todo, error) {
	return h.todos.SetCompleted(ctx, a.ID, req.ID, *req.Completed)
}

// Delete removes a to-do.
func (h *TodoHandler) Delete(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.OKResponse, error) {
	if err := h.todos.Delete(ctx, a.ID, req.ID); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}
