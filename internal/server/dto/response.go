package dto

import (
	"time"

	"github.com/invopop/jsonschema"
	"github.com/maruel/myaccount/internal/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetails describes a failure.
type ErrorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OKResponse acknowledges a request without a body of its own.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ListResponse wraps a list of items.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// NewList returns a ListResponse that always encodes items as an array.
func NewList[T any](items []T) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{Items: items}
}

// Account is the public view of an account.
type Account struct {
	ID        int         `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// AccountFrom strips the password hash from a.
func AccountFrom(a *models.Account) *Account {
	return &Account{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		DeletedAt: a.DeletedAt,
	}
}

// AccountsFrom converts a list of accounts.
func AccountsFrom(in []*models.Account) []*Account {
	out := make([]*Account, 0, len(in))
	for _, a := range in {
		out = append(out, AccountFrom(a))
	}
	return out
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"account"`
}

// ResetPasswordResponse carries the temporary password. It is shown once.
type ResetPasswordResponse struct {
	UserID            int    `json:"user_id"`
	TemporaryPassword string `json:"temporary_password"`
}

// HealthResponse reports the server status.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	DataDir string `json:"data_dir"`
}

// SchemasResponse maps document path patterns to their JSON Schema.
type SchemasResponse struct {
	Schemas map[string]*jsonschema.Schema `json:"schemas"`
}
