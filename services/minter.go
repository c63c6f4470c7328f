package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/cache"
	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/errors"
	"github.com/scottboms/musickit-gateway/internal/metrics"
)

const (
	// minDevTokenTTL floors the requested developer-token lifetime.
	minDevTokenTTL = 300
	// maxCacheBuffer caps the safety margin subtracted from the cache TTL.
	maxCacheBuffer = 120
)

// DevTokenMinter signs short-lived developer JWTs and caches them scoped by
// (teamId, keyId, domain). The cached lifetime is always strictly below the
// token's signed expiry, so an expired token is never served.
type DevTokenMinter struct {
	cache cache.Cache

	now func() time.Time
}

// NewDevTokenMinter creates a minter backed by the given cache.
func NewDevTokenMinter(c cache.Cache) *DevTokenMinter {
	return &DevTokenMinter{
		cache: c,
		now:   time.Now,
	}
}

// Mint signs a fresh developer token with claims {iss, iat, exp} using
// ES256 and the key id in the token header.
func (m *DevTokenMinter) Mint(creds domain.Credentials, ttl time.Duration) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return "", errors.NewSigning(fmt.Sprintf("parse private key: %v", err))
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": creds.TeamID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	token.Header["kid"] = creds.KeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.NewSigning(fmt.Sprintf("sign developer token: %v", err))
	}

	metrics.DevTokensMintedTotal.Inc()
	return signed, nil
}

// cacheKey scopes the cached token by credentials and domain to avoid
// cross-tenant collisions.
func (m *DevTokenMinter) cacheKey(creds domain.Credentials, host string) string {
	team := creds.TeamID
	if team == "" {
		team = "noteam"
	}
	keyID := creds.KeyID
	if keyID == "" {
		keyID = "nokey"
	}
	return cache.Key(fmt.Sprintf("dev_token:%s:%s:%s", team, keyID, SanitizeDomain(host)))
}

// DevToken returns the cached developer token, minting a fresh one on a
// miss. The requested TTL is clamped to at least five minutes and the cache
// entry expires buffer seconds before the signed expiry, tolerating clock
// skew against the upstream verifier.
func (m *DevTokenMinter) DevToken(ctx context.Context, creds domain.Credentials, host string, ttlSeconds int) (string, error) {
	key := m.cacheKey(creds, host)
	if cached, ok := m.cache.Get(ctx, key); ok && len(cached) > 0 {
		return string(cached), nil
	}

	ttl := ttlSeconds
	if ttl < minDevTokenTTL {
		ttl = minDevTokenTTL
	}

	signed, err := m.Mint(creds, time.Duration(ttl)*time.Second)
	if err != nil {
		return "", err
	}

	cacheTTL := cacheTTLSeconds(ttl)
	if err := m.cache.Set(ctx, key, []byte(signed), time.Duration(cacheTTL)*time.Second); err != nil {
		// A failed cache write just re-mints next time.
		log.Warn().Err(err).Msg("failed to cache developer token")
	}

	return signed, nil
}

// Refresh evicts the cached developer token for the scoped key and re-mints.
func (m *DevTokenMinter) Refresh(ctx context.Context, creds domain.Credentials, host string, ttlSeconds int) (string, error) {
	if err := m.cache.Delete(ctx, m.cacheKey(creds, host)); err != nil {
		log.Warn().Err(err).Msg("failed to evict cached developer token")
	}

	return m.DevToken(ctx, creds, host, ttlSeconds)
}

// cacheTTLSeconds computes the cached lifetime for a token with the given
// signed TTL: 10% of the TTL (capped at 120s) is held back as a safety
// buffer, with a one-second floor.
func cacheTTLSeconds(ttl int) int {
	buffer := int(math.Round(float64(ttl) * 0.10))
	if buffer > maxCacheBuffer {
		buffer = maxCacheBuffer
	}

	cacheTTL := ttl - buffer
	if cacheTTL < 1 {
		cacheTTL = 1
	}
	return cacheTTL
}
