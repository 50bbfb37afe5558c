// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/maruel/myaccount/internal/storage"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Store  *storage.FileStore
	Tokens *Tokens
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version             string
	AllowRegistration   bool
	MaxRequestBodyBytes int64
}

// DefaultMaxRequestBodyBytes bounds JSON request bodies when Config leaves it
// unset.
const DefaultMaxRequestBodyBytes = 2 << 20
