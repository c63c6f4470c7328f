package domain

import (
	"context"
	"time"
)

// SiteUserID is the synthetic identity used when no authenticated user is
// supplied. A token stored under it acts as the shared token for site-wide
// public display features.
const SiteUserID = "site"

// UserToken is one stored music-user-token. The durable file is the source
// of truth; the cached mirror may be evicted at any time without data loss.
type UserToken struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"musicUserToken"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TokenRepository is the two-tier (cache + durable file) store for per-user
// music-user-tokens. domain is the request hostname the tokens are scoped to.
type TokenRepository interface {
	// Path returns the deterministic durable location for a user's token.
	Path(host, userID string) string
	// Store durably writes the token and mirrors it into the cache.
	Store(ctx context.Context, host, userID, token string) error
	// Read returns the token from cache, falling back to the durable file.
	Read(ctx context.Context, host, userID string) (string, bool)
	// Delete removes the cached and durable copies. Deleting an absent
	// token is not an error.
	Delete(ctx context.Context, host, userID string) error
	// ReadAny returns any stored token for the domain, in no guaranteed
	// order. Used for site-wide display when no principal is available.
	ReadAny(ctx context.Context, host string) (string, bool)
}
