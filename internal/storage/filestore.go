package storage

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// Options configures NewFileStore.
type Options struct {
	// LockTimeout bounds document lock waits. Zero uses jsondb.DefaultLockTimeout.
	LockTimeout time.Duration
	// MaxUploadBytes and MaxAvatarBytes bound uploads. Zero uses the defaults.
	MaxUploadBytes int64
	MaxAvatarBytes int64
	// Hasher defaults to bcrypt.
	Hasher Hasher
	// PageInfo fetches bookmark titles and icons. Nil disables fetching.
	PageInfo PageInfo
}

// FileStore bundles every service over one data directory.
//
// All services share a single jsondb.Store: the filesystem is the only shared
// state and every document is protected by its own lock.
type FileStore struct {
	Store  *jsondb.Store
	Layout Layout
	Hasher Hasher

	Accounts  *AccountService
	Audit     *AuditLog
	Admin     *AdminService
	Notes     *NoteService
	Todos     *TodoService
	Bookmarks *BookmarkService
	Expenses  *ExpenseService
	Settings  *SettingsService
	Profiles  *ProfileService
	Uploads   *UploadService
}

// NewFileStore initializes a FileStore rooted at rootDir.
func NewFileStore(rootDir string, opts Options) (*FileStore, error) {
	store, err := jsondb.NewStore(rootDir)
	if err != nil {
		return nil, err
	}
	if opts.LockTimeout > 0 {
		store.LockTimeout = opts.LockTimeout
	}
	hasher := opts.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	var layout Layout
	fs := &FileStore{
		Store:     store,
		Layout:    layout,
		Hasher:    hasher,
		Accounts:  NewAccountService(store, layout),
		Audit:     NewAuditLog(store, layout),
		Notes:     NewNoteService(store, layout),
		Todos:     NewTodoService(store, layout),
		Bookmarks: NewBookmarkService(store, layout, opts.PageInfo),
		Expenses:  NewExpenseService(store, layout),
		Settings:  NewSettingsService(store, layout),
		Profiles:  NewProfileService(store, layout),
		Uploads:   NewUploadService(store, layout),
	}
	fs.Admin = NewAdminService(store, layout, fs.Accounts, fs.Audit, hasher)
	if opts.MaxUploadBytes > 0 {
		fs.Uploads.MaxBytes = opts.MaxUploadBytes
	}
	if opts.MaxAvatarBytes > 0 {
		fs.Profiles.MaxAvatarBytes = opts.MaxAvatarBytes
	}
	return fs, nil
}

// RootDir returns the data directory.
func (fs *FileStore) RootDir() string {
	return fs.Store.Root()
}

// Register validates the credentials, creates the account and provisions its
// upload directory and empty profile.
//
// Once the account row exists the registration has succeeded: a provisioning
// failure is logged and the account is returned, since the upload directory
// and the profile are also created on first use.
func (fs *FileStore) Register(ctx context.Context, username, email, password string, role models.Role) (*models.Account, error) {
	if err := CheckUsername(username); err != nil {
		return nil, err
	}
	if err := CheckEmail(email); err != nil {
		return nil, err
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	hash, err := fs.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	a, err := fs.Accounts.Create(ctx, username, email, hash, role)
	if err != nil {
		return nil, err
	}
	if err := fs.provision(ctx, a.ID); err != nil {
		slog.WarnContext(ctx, "Failed to provision account", "id", a.ID, "err", err)
	}
	return a, nil
}

// Authenticate returns the active account matching the credentials.
func (fs *FileStore) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	return fs.Accounts.FindByCredentials(ctx, username, func(hash string) bool {
		return fs.Hasher.Verify(hash, password)
	})
}

// ChangePassword replaces the password of userID after checking the current one.
func (fs *FileStore) ChangePassword(ctx context.Context, userID int, current, next string) error {
	a, err := fs.Accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !fs.Hasher.Verify(a.PasswordHash, current) {
		return invalid("current_password", "is incorrect")
	}
	if err := CheckPassword(next); err != nil {
		return err
	}
	hash, err := fs.Hasher.Hash(next)
	if err != nil {
		return err
	}
	return fs.Accounts.SetPasswordHash(ctx, userID, hash)
}

// recentActivityLen bounds Dashboard.RecentActivity.
const recentActivityLen = 5

// Dashboard holds the per-account counters of the home page.
type Dashboard struct {
	Notes          int        `json:"notes"`
	OpenTodos      int        `json:"open_todos"`
	Bookmarks      int        `json:"bookmarks"`
	Uploads        int        `json:"uploads"`
	RecentActivity []Activity `json:"recent_activity"`
}

// Activity kinds.
const (
	ActivityNote = "note"
	ActivityTodo = "todo"
)

// Activity is a note edit or a to-do completion.
type Activity struct {
	Type  string    `json:"type"`
	ID    int       `json:"id"`
	Title string    `json:"title"`
	Time  time.Time `json:"time"`
}

// Dashboard counts the documents of userID and lists the latest note updates
// and to-do completions, newest first.
func (fs *FileStore) Dashboard(ctx context.Context, userID int) (*Dashboard, error) {
	var d Dashboard
	var err error
	if d.Bookmarks, err = fs.Bookmarks.Count(ctx, userID); err != nil {
		return nil, err
	}
	if d.Uploads, err = fs.Uploads.Count(ctx, userID); err != nil {
		return nil, err
	}
	notes, err := fs.Notes.List(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}
	todos, err := fs.Todos.List(ctx, userID, TodoAll)
	if err != nil {
		return nil, err
	}
	d.Notes = len(notes)
	d.RecentActivity = make([]Activity, 0, len(notes))
	for _, n := range notes {
		at := n.UpdatedAt
		if at.IsZero() {
			at = n.CreatedAt
		}
		d.RecentActivity = append(d.RecentActivity, Activity{Type: ActivityNote, ID: n.ID, Title: n.Title, Time: at})
	}
	for _, t := range todos {
		if !t.Completed {
			d.OpenTodos++
		}
		if t.CompletedAt != nil {
			d.RecentActivity = append(d.RecentActivity, Activity{Type: ActivityTodo, ID: t.ID, Title: t.Title, Time: *t.CompletedAt})
		}
	}
	slices.SortStableFunc(d.RecentActivity, func(a, b Activity) int { return b.Time.Compare(a.Time) })
	if len(d.RecentActivity) > recentActivityLen {
		d.RecentActivity = d.RecentActivity[:recentActivityLen]
	}
	return &d, nil
}

func (fs *FileStore) provision(ctx context.Context, userID int) error {
	dir, err := fs.Uploads.Dir(userID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are 0o755
		return &jsondb.IOError{Op: "create directory", Path: dir, Err: err}
	}
	return fs.Profiles.Init(ctx, userID)
}
