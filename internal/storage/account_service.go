package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// AccountService manages the account table users.json.
//
// Usernames and emails stay reserved by soft-deleted accounts.
type AccountService struct {
	table *jsondb.Table[*models.Account]

	// FirstID is the id given to the first account of an empty table. Zero
	// means 1.
	FirstID int
}

// NewAccountService creates an account service over store.
func NewAccountService(store *jsondb.Store, layout Layout) *AccountService {
	return &AccountService{
		table: jsondb.NewTable[*models.Account](store, layout.UsersPath(), jsondb.ShapeMap),
	}
}

// Create stores a new account. The username and email must not be used by
// any account, deleted or not.
func (s *AccountService) Create(ctx context.Context, username, email, passwordHash string, role models.Role) (*models.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := CheckUsername(username); err != nil {
		return nil, err
	}
	if err := CheckEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, invalid("password", "is required")
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	a := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	err := s.table.Modify(ctx, func(rows []*models.Account) ([]*models.Account, error) {
		for _, row := range rows {
			if row.Username == username {
				return nil, &ConflictError{Field: "username", Value: username}
			}
			if strings.EqualFold(row.Email, email) {
				return nil, &ConflictError{Field: "email", Value: email}
			}
		}
		if len(rows) == 0 && s.FirstID > 0 {
			a.ID = s.FirstID
		}
		return append(rows, a), nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindByCredentials returns the active account named username whose password
// hash satisfies verify. Unknown, deleted and mismatching accounts all return
// ErrNotFound.
func (s *AccountService) FindByCredentials(ctx context.Context, username string, verify func(hash string) bool) (*models.Account, error) {
	rows, err := s.table.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range rows {
		if a.Username != username {
			continue
		}
		if a.Deleted() || !verify(a.PasswordHash) {
			break
		}
		return a, nil
	}
	return nil, fmt.Errorf("account %q: %w", username, ErrNotFound)
}

// Get returns the account with the given id, deleted or not.
func (s *AccountService) Get(ctx context.Context, id int) (*models.Account, error) {
	return s.table.Get(ctx, id)
}

// List returns every account in ascending id order.
func (s *AccountService) List(ctx context.Context) ([]*models.Account, error) {
	return s.table.All(ctx)
}

// Counts returns the number of accounts and of accounts not soft-deleted.
func (s *AccountService) Counts(ctx context.Context) (total, active int, err error) {
	rows, err := s.table.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range rows {
		if !a.Deleted() {
			active++
		}
	}
	return len(rows), active, nil
}

// SetPasswordHash replaces the password hash of an active account. A
// soft-deleted account reports ErrNotFound.
func (s *AccountService) SetPasswordHash(ctx context.Context, id int, hash string) error {
	if hash == "" {
		return invalid("password", "is required")
	}
	ok, err := s.table.Update(ctx, id, func(a *models.Account) error {
		if a.Deleted() {
			return fmt.Errorf("account %d is deleted: %w", id, ErrNotFound)
		}
		a.PasswordHash = hash
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return nil
}

// SoftDelete marks the account deleted at t and reports whether this call
// changed the row. Deleting twice keeps the first timestamp and returns false.
func (s *AccountService) SoftDelete(ctx context.Context, id int, t time.Time) (bool, error) {
	changed := false
	ok, err := s.table.Update(ctx, id, func(a *models.Account) error {
		if a.DeletedAt != nil {
			return jsondb.ErrSkipWrite
		}
		t := t.UTC()
		a.DeletedAt = &t
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return changed, nil
}

// IsActive reports whether the account exists and is not soft-deleted.
func (s *AccountService) IsActive(ctx context.Context, id int) (bool, error) {
	a, err := s.table.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !a.Deleted(), nil
}

// AssertNotSelf returns ErrForbidden when an account acts on itself.
func AssertNotSelf(actingID, targetID int) error {
	if actingID == targetID {
		return fmt.Errorf("cannot perform this action on yourself: %w", ErrForbidden)
	}
	return nil
}

// CheckUsername enforces the username policy.
func CheckUsername(username string) error {
	if len(username) < 3 {
		return invalid("username", "must be at least 3 characters")
	}
	if len(username) > 64 {
		return invalid("username", "must be at most 64 characters")
	}
	if strings.ContainsFunc(username, func(r rune) bool { return r <= ' ' || r == '/' }) {
		return invalid("username", "must not contain spaces or slashes")
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// CheckEmail enforces a syntactically valid bare address.
func CheckEmail(email string) error {
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return invalid("email", "is not a valid address")
	}
	return nil
}
