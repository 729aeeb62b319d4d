package oauth2client

import (
	"context"
	"time"
)

const (
	// SafetyMargin is subtracted from the reported token lifetime so a token
	// is never presented in the last minute before it expires.
	SafetyMargin = 60 * time.Second

	// DefaultExpiresIn is assumed when the token response carries no usable
	// expires_in.
	DefaultExpiresIn = 3600 * time.Second
)

// CachedToken is an access token with its effective expiry, which already
// accounts for SafetyMargin.
type CachedToken struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t CachedToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Store is an optional second-level cache consulted when the in-memory token
// is missing or stale, e.g. to share a token across processes.
type Store interface {
	// Load returns the stored token and whether one was found.
	Load(ctx context.Context) (CachedToken, bool, error)
	// Save replaces the stored token.
	Save(ctx context.Context, token CachedToken) error
}
