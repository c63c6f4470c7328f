package musickit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/cache"
	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/internal/metrics"
)

// Negative-cache messages. Kept distinct so callers (and logs) can tell a
// missing shared token from an upstream failure.
const (
	errMissingSharedToken = "Missing shared Music-User-Token (site)"
	errUpstream           = "Apple Music API error"
)

// defaultDisplayLimit is the item count for the site-wide display feed.
const defaultDisplayLimit = 12

// RecentCache is the read-through cache in front of the site-wide
// recently-played feed. Failures are negative-cached for the same TTL as
// successes so a missing shared token cannot cause a lookup storm.
type RecentCache struct {
	cache   cache.Cache
	gateway *Gateway
}

// NewRecentCache wires the display cache over the catalog gateway.
func NewRecentCache(c cache.Cache, gateway *Gateway) *RecentCache {
	return &RecentCache{
		cache:   c,
		gateway: gateway,
	}
}

func recentCacheKey(limit int, language string) string {
	return cache.Key("recent:site:" + cache.HashParams(fmt.Sprintf("%d|%s", limit, language)))
}

// RecentForDisplay returns the normalized recently-played items for
// site-wide display, cached for ttl. A ttl of zero disables caching
// entirely. The returned payload always carries a nil Error on success and
// a message on any (cached) failure.
func (r *RecentCache) RecentForDisplay(ctx context.Context, creds domain.Credentials, host string, limit int, language string, ttl time.Duration) domain.RecentPayload {
	if limit <= 0 {
		limit = defaultDisplayLimit
	}

	key := recentCacheKey(limit, language)
	if ttl > 0 {
		if cached, ok := r.cache.Get(ctx, key); ok {
			var payload domain.RecentPayload
			if err := json.Unmarshal(cached, &payload); err == nil {
				metrics.ResponseCacheHitsTotal.Inc()
				return payload
			}
		}
		metrics.ResponseCacheMissTotal.Inc()
	}

	userToken, ok := r.gateway.tokens.ReadAny(ctx, host)
	if !ok {
		return r.negative(ctx, key, errMissingSharedToken, ttl)
	}

	devToken, err := r.gateway.minter.DevToken(ctx, creds, host, r.gateway.devTokenTTL)
	if err != nil {
		log.Error().Err(err).Msg("failed to mint developer token for display feed")
		return r.negative(ctx, key, errUpstream, ttl)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("l", language)

	body, err := r.gateway.client.Get(ctx, "recent_display", "/v1/me/recent/played/tracks?"+q.Encode(), devToken, userToken, nil)
	if err != nil {
		return r.negative(ctx, key, errUpstream, ttl)
	}

	var page domain.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return r.negative(ctx, key, errUpstream, ttl)
	}

	items := make([]domain.RecentItem, 0, len(page.Data))
	for _, it := range page.Data {
		items = append(items, normalizeRecentItem(it))
	}

	payload := domain.RecentPayload{Items: items, Error: nil}
	r.store(ctx, key, payload, ttl)
	return payload
}

// negative caches a failure payload for the same TTL as a success, then
// returns it.
func (r *RecentCache) negative(ctx context.Context, key, message string, ttl time.Duration) domain.RecentPayload {
	payload := domain.RecentPayload{Items: []domain.RecentItem{}, Error: &message}
	metrics.NegativeCacheTotal.Inc()
	r.store(ctx, key, payload, ttl)
	return payload
}

// store writes a payload to the cache. The write deliberately survives
// caller cancellation: a response worth computing is worth caching, only
// its delivery is abandoned.
func (r *RecentCache) store(ctx context.Context, key string, payload domain.RecentPayload, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode display feed payload")
		return
	}

	if err := r.cache.Set(context.WithoutCancel(ctx), key, encoded, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to cache display feed payload")
	}
}
