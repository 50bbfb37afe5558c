package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Kind names a per-user document.
type Kind string

// Document kinds.
const (
	KindNotes     Kind = "notes"
	KindTodos     Kind = "todos"
	KindBookmarks Kind = "bookmarks"
	KindExpenses  Kind = "expenses"
	KindSettings  Kind = "settings"
	KindProfile   Kind = "profile"
)

// Kinds lists every per-user document kind.
var Kinds = []Kind{KindNotes, KindTodos, KindBookmarks, KindExpenses, KindSettings, KindProfile}

var kindFiles = map[Kind]string{
	KindNotes:     "notes.json",
	KindTodos:     "todo.json",
	KindBookmarks: "links.json",
	KindExpenses:  "expense.json",
	KindSettings:  "settings.json",
}

const archiveStamp = "20060102_150405"

// Layout maps accounts and document kinds to paths relative to the data
// directory. It does no I/O.
//
//	users.json
//	logs.json
//	profiles/profile_{id}.json
//	users/{id}/notes.json todo.json links.json expense.json settings.json
//	users/{id}/uploads/
//	users_archive/{id}_{YYYYMMDD_HHMMSS}/
type Layout struct{}

// UsersPath returns the account table document.
func (Layout) UsersPath() string { return "users.json" }

// LogsPath returns the audit log document.
func (Layout) LogsPath() string { return "logs.json" }

// PathFor returns the document of kind owned by userID.
func (Layout) PathFor(userID int, kind Kind) (string, error) {
	if userID <= 0 {
		return "", invalid("user_id", "must be positive, got %d", userID)
	}
	if kind == KindProfile {
		return filepath.Join("profiles", fmt.Sprintf("profile_%d.json", userID)), nil
	}
	name, ok := kindFiles[kind]
	if !ok {
		return "", invalid("kind", "unknown document kind %q", kind)
	}
	return filepath.Join("users", strconv.Itoa(userID), name), nil
}

// UserDir returns the directory holding userID's documents.
func (Layout) UserDir(userID int) (string, error) {
	if userID <= 0 {
		return "", invalid("user_id", "must be positive, got %d", userID)
	}
	return filepath.Join("users", strconv.Itoa(userID)), nil
}

// UploadDir returns the directory holding userID's uploaded files.
func (l Layout) UploadDir(userID int) (string, error) {
	dir, err := l.UserDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "uploads"), nil
}

// ArchiveDir returns where UserDir(userID) is moved when the account is
// deleted at t.
func (Layout) ArchiveDir(userID int, t time.Time) (string, error) {
	if userID <= 0 {
		return "", invalid("user_id", "must be positive, got %d", userID)
	}
	return filepath.Join("users_archive", fmt.Sprintf("%d_%s", userID, t.Format(archiveStamp))), nil
}
