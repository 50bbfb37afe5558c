package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

const (
	tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	tempPasswordLength   = 12
)

// Stats is the administrator dashboard.
type Stats struct {
	TotalUsers  int                  `json:"total_users"`
	ActiveUsers int                  `json:"active_users"`
	Recent      []*models.AuditEntry `json:"recent_activity"`
}

// AdminService implements the account lifecycle operations of administrators.
// Every operation is recorded in the audit log.
type AdminService struct {
	store    *jsondb.Store
	layout   Layout
	accounts *AccountService
	audit    *AuditLog
	hasher   Hasher
	now      func() time.Time
}

// NewAdminService creates an admin service.
func NewAdminService(store *jsondb.Store, layout Layout, accounts *AccountService, audit *AuditLog, hasher Hasher) *AdminService {
	return &AdminService{
		store:    store,
		layout:   layout,
		accounts: accounts,
		audit:    audit,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Stats returns the account counts and the n most recent audit entries.
func (s *AdminService) Stats(ctx context.Context, n int) (*Stats, error) {
	total, active, err := s.accounts.Counts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.audit.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalUsers: total, ActiveUsers: active, Recent: recent}, nil
}

// ResetPassword replaces the password of targetID with a random temporary
// one and returns it. The password itself is not logged.
func (s *AdminService) ResetPassword(ctx context.Context, adminID, targetID int) (string, error) {
	if err := AssertNotSelf(adminID, targetID); err != nil {
		return "", err
	}
	target, err := s.accounts.Get(ctx, targetID)
	if err != nil {
		return "", err
	}
	if target.Deleted() {
		return "", fmt.Errorf("account %d is deleted: %w", targetID, ErrNotFound)
	}
	password, err := gonanoid.Generate(tempPasswordAlphabet, tempPasswordLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}
	if err := s.accounts.SetPasswordHash(ctx, targetID, hash); err != nil {
		return "", err
	}
	entry := &models.AuditEntry{
		Timestamp:    s.now().UTC(),
		AdminID:      adminID,
		Action:       models.ActionResetPassword,
		TargetUserID: targetID,
		Details:      fmt.Sprintf("Temporary password issued for %s", target.Username),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Password reset", "admin", adminID, "target", targetID)
	return password, nil
}

// DeleteUser archives the documents of targetID, soft-deletes the account
// and records the action. An archive failure aborts before the account is
// touched; having nothing to archive is not an error.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, targetID int) error {
	if err := AssertNotSelf(adminID, targetID); err != nil {
		return err
	}
	target, err := s.accounts.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Deleted() {
		return fmt.Errorf("account %d is already deleted: %w", targetID, ErrNotFound)
	}
	now := s.now()
	archived, err := s.archive(targetID, now)
	if err != nil {
		return err
	}
	changed, err := s.accounts.SoftDelete(ctx, targetID, now)
	if err != nil {
		return err
	}
	if !changed {
		// Another request deleted the account since the check above.
		return fmt.Errorf("account %d is already deleted: %w", targetID, ErrNotFound)
	}
	details := "Nothing to archive"
	if archived != "" {
		details = "Archived to " + archived
	}
	entry := &models.AuditEntry{
		Timestamp:    now.UTC(),
		AdminID:      adminID,
		Action:       models.ActionDeleteUser,
		TargetUserID: targetID,
		Details:      details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User deleted", "admin", adminID, "target", targetID, "archive", archived)
	return nil
}

// archive moves users/{id} into users_archive. It returns the archive path
// relative to the data directory, or "" when there was nothing to move.
func (s *AdminService) archive(userID int, t time.Time) (string, error) {
	srcRel, err := s.layout.UserDir(userID)
	if err != nil {
		return "", err
	}
	dstRel, err := s.layout.ArchiveDir(userID, t)
	if err != nil {
		return "", err
	}
	src, err := s.store.Abs(srcRel)
	if err != nil {
		return "", err
	}
	dst, err := s.store.Abs(dstRel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		return "", &jsondb.IOError{Op: "create archive directory", Path: dst, Err: err}
	}
	if _, err := os.Stat(dst); err == nil {
		return "", &jsondb.IOError{Op: "archive", Path: dst, Err: fs.ErrExist}
	}
	if err := os.Rename(src, dst); err != nil {
		return "", &jsondb.IOError{Op: "archive", Path: src, Err: err}
	}
	return dstRel, nil
}
