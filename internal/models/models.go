// Package models defines the records persisted in the data directory.
//
// Every collection record is a pointer type with GetID and SetID so that it
// can be stored in a jsondb.Table.
package models

import (
	"time"
)

// Role defines the permissions of an account.
type Role string

const (
	// RoleUser can only access its own documents.
	RoleUser Role = "user"
	// RoleAdmin can additionally manage accounts and read the audit log.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a row of users.json.
type Account struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Role         Role       `json:"role" jsonschema:"enum=user,enum=admin"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// GetID returns the account id.
func (a *Account) GetID() int { return a.ID }

// SetID sets the account id.
func (a *Account) SetID(id int) { a.ID = id }

// Deleted reports whether the account was soft-deleted.
func (a *Account) Deleted() bool { return a.DeletedAt != nil }

// IsAdmin reports whether the account has the admin role.
func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// Note is a markdown note.
type Note struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	ContentMarkdown string    `json:"content_markdown"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (n *Note) GetID() int   { return n.ID }
func (n *Note) SetID(id int) { n.ID = id }

// Todo is a to-do item.
type Todo struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     string     `json:"opt_due_date,omitempty" jsonschema:"format=date"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (t *Todo) GetID() int   { return t.ID }
func (t *Todo) SetID(id int) { t.ID = id }

// Bookmark is a saved link.
type Bookmark struct {
	ID          int       `json:"id"`
	URL         string    `json:"url" jsonschema:"format=uri"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Favicon     string    `json:"favicon,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

func (b *Bookmark) GetID() int   { return b.ID }
func (b *Bookmark) SetID(id int) { b.ID = id }

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	// Income adds to the balance.
	Income TransactionType = "income"
	// Expense subtracts from the balance.
	Expense TransactionType = "expense"
)

// Transaction is an income or expense entry.
type Transaction struct {
	ID        int             `json:"id"`
	Type      TransactionType `json:"type" jsonschema:"enum=income,enum=expense"`
	Amount    float64         `json:"amount" jsonschema:"minimum=0"`
	Category  string          `json:"category"`
	Note      string          `json:"note,omitempty"`
	Date      string          `json:"date" jsonschema:"format=date"`
	CreatedAt time.Time       `json:"created_at"`
}

func (t *Transaction) GetID() int   { return t.ID }
func (t *Transaction) SetID(id int) { t.ID = id }

// AuditEntry is a row of logs.json.
type AuditEntry struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	AdminID      int       `json:"admin_id"`
	Action       string    `json:"action"`
	TargetUserID int       `json:"target_user_id,omitempty"`
	Details      string    `json:"details"`
}

func (e *AuditEntry) GetID() int   { return e.ID }
func (e *AuditEntry) SetID(id int) { e.ID = id }

// Audit actions.
const (
	ActionResetPassword = "reset_password"
	ActionDeleteUser    = "delete_user"
	ActionCreateUser    = "create_user"
)

// Profile is the single-record document profiles/profile_{id}.json.
type Profile struct {
	UserID   int    `json:"user_id"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar"`
}

// Theme is the UI theme preference.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language is the UI language preference.
type Language string

// Languages.
const (
	LanguageEnglish Language = "en"
	LanguageBangla  Language = "bn"
)

// Privacy holds the privacy toggles of Settings.
type Privacy struct {
	ShowEmail  bool `json:"show_email"`
	Newsletter bool `json:"newsletter"`
}

// Settings is the single-record document users/{id}/settings.json.
type Settings struct {
	Theme            Theme      `json:"theme" jsonschema:"enum=light,enum=dark"`
	Language         Language   `json:"language" jsonschema:"enum=en,enum=bn"`
	Privacy          Privacy    `json:"privacy"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// DefaultSettings returns the settings of an account that never saved any.
func DefaultSettings() Settings {
	return Settings{
		Theme:    ThemeLight,
		Language: LanguageEnglish,
		Privacy:  Privacy{ShowEmail: false, Newsletter: true},
	}
}

// Upload describes a file stored in a user's upload directory.
type Upload struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Modified  time.Time `json:"modified"`
}

// CategoryTotal is the sum of one category in an ExpenseSummary.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// ExpenseSummary aggregates transactions. Category totals are sorted by
// descending amount.
type ExpenseSummary struct {
	Month             string          `json:"month,omitempty"`
	Income            float64         `json:"income"`
	Expenses          float64         `json:"expenses"`
	Balance           float64         `json:"balance"`
	IncomeCategories  []CategoryTotal `json:"income_categories"`
	ExpenseCategories []CategoryTotal `json:"expense_categories"`
}
