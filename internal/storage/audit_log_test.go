package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/maruel/myaccount/internal/models"
)

func TestAuditLog(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of order, as concurrent admins could.
	for i, off := range []time.Duration{0, 2 * time.Minute, time.Minute, 2 * time.Minute} {
		e := &models.AuditEntry{
			Timestamp: base.Add(off),
			AdminID:   1,
			Action:    models.ActionResetPassword,
			Details:   string(rune('a' + i)),
		}
		if err := fs.Audit.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if e.ID != i+1 {
			t.Errorf("entry id = %d, want %d", e.ID, i+1)
		}
	}

	all, err := fs.Audit.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	var got string
	for _, e := range all {
		got += e.Details
	}
	// Newest first; ties broken by the later id.
	if got != "dbca" {
		t.Errorf("order = %q, want %q", got, "dbca")
	}

	two, err := fs.Audit.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(two) != 2 || two[0].Details != "d" {
		t.Errorf("Recent(2) = %d entries", len(two))
	}
	many, err := fs.Audit.Recent(ctx, 50)
	if err != nil || len(many) != 4 {
		t.Errorf("Recent(50) = %d, %v", len(many), err)
	}

	if err := fs.Audit.Append(ctx, &models.AuditEntry{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Append without action = %v", err)
	}
	e := &models.AuditEntry{Action: models.ActionDeleteUser}
	if err := fs.Audit.Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp was not set")
	}
}
