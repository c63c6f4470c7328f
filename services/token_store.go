package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/cache"
	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/internal/metrics"
)

// tokenNamespace keeps token files apart from anything else that may share
// the storage root.
const tokenNamespace = "scottboms/applemusic"

var domainSanitizer = regexp.MustCompile(`[^a-z0-9.\-]+`)

// tokenFile is the durable on-disk layout, one file per (domain, user).
type tokenFile struct {
	MusicUserToken string `json:"musicUserToken"`
	UpdatedAt      string `json:"updatedAt"`
}

// TokenStore persists music-user-tokens with a cache-first read path and
// cache-mirrored writes. The durable file is the source of truth; the cache
// entry is re-derivable and may be evicted at any time.
type TokenStore struct {
	root  string
	cache cache.Cache
	ttl   time.Duration // cached-mirror lifetime

	now func() time.Time
}

var _ domain.TokenRepository = (*TokenStore)(nil)

// NewTokenStore creates a TokenStore rooted at the given directory. ttl is
// the cache-mirror lifetime, floored at one minute.
func NewTokenStore(root string, c cache.Cache, ttl time.Duration) *TokenStore {
	if ttl < time.Minute {
		ttl = time.Minute
	}

	return &TokenStore{
		root:  root,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SanitizeDomain maps a request hostname onto a filesystem-safe folder
// name: port stripped, lowercased, every run of characters outside
// [a-z0-9.-] collapsed into a single "-".
func SanitizeDomain(host string) string {
	if host == "" {
		return "unknown"
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return domainSanitizer.ReplaceAllString(host, "-")
}

// Path returns the deterministic durable location of a user's token file.
// An empty userID resolves to the synthetic site identity.
func (s *TokenStore) Path(host, userID string) string {
	if userID == "" {
		userID = domain.SiteUserID
	}
	return filepath.Join(s.root, SanitizeDomain(host), tokenNamespace, userID+".json")
}

func (s *TokenStore) cacheKey(userID string) string {
	if userID == "" {
		userID = domain.SiteUserID
	}
	return cache.Key("token:" + userID)
}

// Store durably writes the token, then mirrors it into the cache. The cache
// is never touched when the durable write fails.
func (s *TokenStore) Store(ctx context.Context, host, userID, token string) error {
	path := s.Path(host, userID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	payload, err := json.MarshalIndent(tokenFile{
		MusicUserToken: token,
		UpdatedAt:      s.now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	if err := s.cache.Set(ctx, s.cacheKey(userID), []byte(token), s.ttl); err != nil {
		// The durable copy is already in place; a failed mirror only costs
		// the next read a file hit.
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to mirror token into cache")
	}

	metrics.UserTokensStoredTotal.Inc()
	return nil
}

// Read returns the user's token, trying the cache first and falling back to
// the durable file. A readable file re-populates the cache. Read failures
// degrade to "no token": a missing token is a normal state.
func (s *TokenStore) Read(ctx context.Context, host, userID string) (string, bool) {
	key := s.cacheKey(userID)
	if cached, ok := s.cache.Get(ctx, key); ok && len(cached) > 0 {
		return string(cached), true
	}

	data, err := os.ReadFile(s.Path(host, userID))
	if err != nil {
		return "", false
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("unreadable token file")
		return "", false
	}

	if tf.MusicUserToken == "" {
		return "", false
	}

	if err := s.cache.Set(ctx, key, []byte(tf.MusicUserToken), s.ttl); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to re-populate token cache")
	}

	return tf.MusicUserToken, true
}

// Delete removes the cache entry unconditionally, then the durable file if
// it exists. Deleting an absent token succeeds, so the call is idempotent.
func (s *TokenStore) Delete(ctx context.Context, host, userID string) error {
	if err := s.cache.Delete(ctx, s.cacheKey(userID)); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to evict token cache entry")
	}

	path := s.Path(host, userID)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove token file: %w", err)
	}

	metrics.UserTokensDeletedTotal.Inc()
	return nil
}

// ReadAny scans the domain's token directory for any file with a non-empty
// token and returns the first found, mirroring it into the cache under that
// file's user id. Enumeration order is filesystem-dependent; callers must
// not rely on a specific winner.
func (s *TokenStore) ReadAny(ctx context.Context, host string) (string, bool) {
	dir := filepath.Dir(s.Path(host, "any"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		var tf tokenFile
		if err := json.Unmarshal(data, &tf); err != nil || tf.MusicUserToken == "" {
			continue
		}

		uid := strings.TrimSuffix(name, ".json")
		if err := s.cache.Set(ctx, s.cacheKey(uid), []byte(tf.MusicUserToken), s.ttl); err != nil {
			log.Warn().Err(err).Str("user_id", uid).Msg("failed to mirror shared token into cache")
		}

		return tf.MusicUserToken, true
	}

	return "", false
}
