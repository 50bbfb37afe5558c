package storage

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// AuditLog is the append-only administrator log logs.json.
type AuditLog struct {
	table *jsondb.Table[*models.AuditEntry]
}

// NewAuditLog creates an audit log over store.
func NewAuditLog(store *jsondb.Store, layout Layout) *AuditLog {
	return &AuditLog{
		table: jsondb.NewTable[*models.AuditEntry](store, layout.LogsPath(), jsondb.ShapeList),
	}
}

// Append records e, assigning its id and, when zero, its timestamp.
func (l *AuditLog) Append(ctx context.Context, e *models.AuditEntry) error {
	if e.Action == "" {
		return invalid("action", "is required")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.ID = 0
	_, err := l.table.Insert(ctx, e)
	return err
}

// Recent returns at most n entries, newest first. n <= 0 returns every entry.
func (l *AuditLog) Recent(ctx context.Context, n int) ([]*models.AuditEntry, error) {
	rows, err := l.table.All(ctx)
	if err != nil {
		return nil, err
	}
	// Concurrent admins may append out of timestamp order.
	slices.SortStableFunc(rows, func(a, b *models.AuditEntry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}
