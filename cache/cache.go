package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// KeyPrefix namespaces every cache key the gateway writes, so a shared
// redis instance can host other tenants without collisions.
const KeyPrefix = "applemusic:"

// Key builds a namespaced cache key.
func Key(suffix string) string {
	return KeyPrefix + suffix
}

// HashParams hashes a request-parameter fingerprint into a short, fixed
// length key segment.
func HashParams(params string) string {
	sum := sha256.Sum256([]byte(params))
	return hex.EncodeToString(sum[:])
}

// Cache is the Tier1 store shared by the token mirror, the dev-token cache
// and the response cache. Values are opaque bytes; entries expire after
// their TTL and may be evicted earlier without notice.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
