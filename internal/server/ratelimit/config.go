package ratelimit

import (
	"net/http"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses authenticated account ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for different tiers. A nil Limiter disables
// its tier.
type Config struct {
	Auth  Tier
	Write Tier
}

// NewConfig creates a Config allowing authPerMin authentication attempts per
// client IP and writePerMin mutating requests per account. Zero disables a
// tier.
func NewConfig(authPerMin, writePerMin int) *Config {
	c := &Config{
		Auth:  Tier{Name: "auth", Scope: ScopeIP},
		Write: Tier{Name: "write", Scope: ScopeUser},
	}
	if authPerMin > 0 {
		c.Auth.Limiter = NewLimiter(authPerMin, time.Minute, authPerMin)
	}
	if writePerMin > 0 {
		c.Write.Limiter = NewLimiter(writePerMin, time.Minute, max(writePerMin/6, 1))
	}
	return c
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for requests that should not be rate limited. A nil Config
// limits nothing.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if c == nil {
		return nil
	}
	if method == http.MethodPost && (path == "/api/v1/auth/login" || path == "/api/v1/auth/register") {
		return active(&c.Auth)
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for requests that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if c == nil {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return active(&c.Write)
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{&c.Auth, &c.Write} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}

func active(t *Tier) *Tier {
	if t.Limiter == nil {
		return nil
	}
	return t
}
