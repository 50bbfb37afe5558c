package storage

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// Uncategorized names transactions without a category in summaries.
const Uncategorized = "Uncategorized"

const monthLayout = "2006-01"

// ExpenseService manages users/{id}/expense.json.
type ExpenseService struct {
	c userCollection[*models.Transaction]
}

// NewExpenseService creates an expense service over store.
func NewExpenseService(store *jsondb.Store, layout Layout) *ExpenseService {
	return &ExpenseService{c: userCollection[*models.Transaction]{store: store, layout: layout, kind: KindExpenses}}
}

// List returns the transactions of userID, latest date first. A non-empty
// month (YYYY-MM) keeps only that month.
func (s *ExpenseService) List(ctx context.Context, userID int, month string) ([]*models.Transaction, error) {
	if month != "" {
		if _, err := time.Parse(monthLayout, month); err != nil {
			return nil, invalid("month", "must be YYYY-MM")
		}
	}
	rows, err := s.c.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	if month != "" {
		rows = slices.DeleteFunc(rows, func(t *models.Transaction) bool { return !strings.HasPrefix(t.Date, month+"-") })
	}
	slices.SortStableFunc(rows, func(a, b *models.Transaction) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return rows, nil
}

// Create stores a transaction. The amount is rounded to cents and the date
// defaults to today.
func (s *ExpenseService) Create(ctx context.Context, userID int, t *models.Transaction) (*models.Transaction, error) {
	if t.Type != models.Income && t.Type != models.Expense {
		return nil, invalid("type", "must be income or expense")
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount < 0 {
		return nil, invalid("amount", "must be a non-negative number")
	}
	t.Amount = math.Round(t.Amount*100) / 100
	t.Category = strings.TrimSpace(t.Category)
	t.Note = strings.TrimSpace(t.Note)
	now := time.Now().UTC()
	if t.Date = strings.TrimSpace(t.Date); t.Date == "" {
		t.Date = now.Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, t.Date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	t.CreatedAt = now
	if err := s.c.insert(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a transaction.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int) error {
	return s.c.delete(ctx, userID, id)
}

// Summary totals the transactions of month (YYYY-MM), or all of them when
// month is empty.
func (s *ExpenseService) Summary(ctx context.Context, userID int, month string) (*models.ExpenseSummary, error) {
	rows, err := s.List(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	sum := Summarize(rows)
	sum.Month = month
	return sum, nil
}

// Summarize computes the totals and per-category sums of rows.
func Summarize(rows []*models.Transaction) *models.ExpenseSummary {
	sum := &models.ExpenseSummary{}
	for _, t := range rows {
		if t.Type == models.Income {
			sum.Income += t.Amount
		} else {
			sum.Expenses += t.Amount
		}
	}
	sum.Income = round2(sum.Income)
	sum.Expenses = round2(sum.Expenses)
	sum.Balance = round2(sum.Income - sum.Expenses)
	sum.IncomeCategories, sum.ExpenseCategories = GroupByCategory(rows)
	return sum
}

// GroupByCategory sums amounts per category separately for income and
// expenses, each sorted by descending total then name.
func GroupByCategory(rows []*models.Transaction) (income, expense []models.CategoryTotal) {
	in := map[string]float64{}
	out := map[string]float64{}
	for _, t := range rows {
		c := t.Category
		if c == "" {
			c = Uncategorized
		}
		if t.Type == models.Income {
			in[c] += t.Amount
		} else {
			out[c] += t.Amount
		}
	}
	return sortedTotals(in), sortedTotals(out)
}

func sortedTotals(m map[string]float64) []models.CategoryTotal {
	out := make([]models.CategoryTotal, 0, len(m))
	for c, v := range m {
		out = append(out, models.CategoryTotal{Category: c, Total: round2(v)})
	}
	slices.SortFunc(out, func(a, b models.CategoryTotal) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
