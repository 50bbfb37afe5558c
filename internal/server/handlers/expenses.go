package handlers

import (
	"context"

	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/storage"
)

// ExpenseHandler handles the caller's income and expense records.
type ExpenseHandler struct {
	expenses *storage.ExpenseService
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(svc *Services) *ExpenseHandler {
	return &ExpenseHandler{expenses: svc.Store.Expenses}
}

// List returns the transactions, optionally of one month.
func (h *ExpenseHandler) List(ctx context.Context, a *models.Account, req *dto.MonthRequest) (*dto.ListResponse[*models.Transaction], error) {
	rows, err := h.expenses.List(ctx, a.ID, req.Month)
	if err != nil {
		return nil, err
	}
	return dto.NewList(rows), nil
}

// Create records a transaction.
func (h *ExpenseHandler) Create(ctx context.Context, a *models.Account, req *dto.CreateTransactionRequest) (*models.Transaction, error) {
	return h.expenses.Create(ctx, a.ID, &models.Transaction{
		Type:     models.TransactionType(req.Type),
		Amount:   req.Amount,
		Category: req.Category,
		Note:     req.Note,
		Date:     req.Date,
	})
}

// Delete removes a transaction.
func (h *ExpenseHandler) Delete(ctx context.Context, a *models.Account, req *dto.IDRequest) (*dto.OKResponse, error) {
	if err := h.expenses.Delete(ctx, a.ID, req.ID); err != nil {
		return nil, err
	}
	return &dto.OKResponse{OK: true}, nil
}

// Summary returns the totals and category sums, optionally of one month.
func (h *ExpenseHandler) Summary(ctx context.Context, a *models.Account, req *dto.MonthRequest) (*models.ExpenseSummary, error) {
	return h.expenses.Summary(ctx, a.ID, req.Month)
}
