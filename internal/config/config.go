// Package config manages the server configuration stored in
// server_config.json in the data directory.
package config

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/storage"
)

// FileName is the configuration document in the data directory.
const FileName = "server_config.json"

// Duration is a time.Duration serialized as a Go duration string ("24h").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// JWTSecret is the secret used to sign session tokens.
	// Auto-generated if empty on first load.
	JWTSecret []byte `json:"jwt_secret"`

	// SessionTTL is the lifetime of a session token.
	SessionTTL Duration `json:"session_ttl"`

	// LockTimeout bounds the wait for a document lock.
	LockTimeout Duration `json:"lock_timeout"`

	// MaxUploadBytes limits a single uploaded file.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// MaxAvatarBytes limits a profile picture.
	MaxAvatarBytes int64 `json:"max_avatar_bytes"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`

	// FetchTitles enables fetching the title and icon of bookmarked pages.
	FetchTitles bool `json:"fetch_titles"`

	// AllowRegistration enables self-service account creation.
	AllowRegistration bool `json:"allow_registration"`
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// AuthRatePerMin limits authentication attempts (login, register) per
	// client IP. 0 means unlimited.
	AuthRatePerMin int `json:"auth_rate_per_min"`

	// WriteRatePerMin limits mutating requests per account.
	// 0 means unlimited.
	WriteRatePerMin int `json:"write_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	return nil
}

// Default returns the configuration used for a new data directory, without
// a JWT secret.
func Default() ServerConfig {
	return ServerConfig{
		SessionTTL:     Duration(24 * time.Hour),
		LockTimeout:    Duration(jsondb.DefaultLockTimeout),
		MaxUploadBytes: storage.DefaultMaxUploadBytes,
		MaxAvatarBytes: storage.DefaultMaxAvatarBytes,
		RateLimits: RateLimits{
			AuthRatePerMin:  5,
			WriteRatePerMin: 120,
		},
		FetchTitles:       true,
		AllowRegistration: true,
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if c.SessionTTL < Duration(time.Minute) {
		return errors.New("session_ttl must be at least 1m")
	}
	if c.LockTimeout <= 0 {
		return errors.New("lock_timeout must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.MaxAvatarBytes <= 0 {
		return errors.New("max_avatar_bytes must be positive")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// Load loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
// Auto-generates JWTSecret if empty.
func Load(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, FileName)
	cfg := Default()
	modified := false
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		modified = true
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		modified = true
	}
	if modified {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := jsondb.WriteFileAtomic(filepath.Join(dataDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

// StorageOptions returns the storage settings derived from c.
func (c *ServerConfig) StorageOptions() storage.Options {
	return storage.Options{
		LockTimeout:    time.Duration(c.LockTimeout),
		MaxUploadBytes: c.MaxUploadBytes,
		MaxAvatarBytes: c.MaxAvatarBytes,
	}
}
