package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	DevTokensMintedTotal    prometheus.Counter
	UpstreamRequestsTotal   *prometheus.CounterVec
	ResponseCacheHitsTotal  prometheus.Counter
	ResponseCacheMissTotal  prometheus.Counter
	NegativeCacheTotal      prometheus.Counter
	UserTokensStoredTotal   prometheus.Counter
	UserTokensDeletedTotal  prometheus.Counter
)

// InitCustomMetrics initializes and registers custom Prometheus metrics.
// It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	DevTokensMintedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_dev_tokens_minted_total",
		Help: "Total number of developer tokens minted.",
	})
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "musickit_upstream_requests_total",
		Help: "Total number of Apple Music API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	ResponseCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_response_cache_hits_total",
		Help: "Total number of response cache hits.",
	})
	ResponseCacheMissTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_response_cache_misses_total",
		Help: "Total number of response cache misses.",
	})
	NegativeCacheTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_negative_cache_entries_total",
		Help: "Total number of negative results cached.",
	})
	UserTokensStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_user_tokens_stored_total",
		Help: "Total number of music-user-tokens stored.",
	})
	UserTokensDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musickit_user_tokens_deleted_total",
		Help: "Total number of music-user-tokens deleted.",
	})

	// Register metrics
	if reg != nil {
		collectors := map[string]prometheus.Collector{
			"DevTokensMintedTotal":   DevTokensMintedTotal,
			"UpstreamRequestsTotal":  UpstreamRequestsTotal,
			"ResponseCacheHitsTotal": ResponseCacheHitsTotal,
			"ResponseCacheMissTotal": ResponseCacheMissTotal,
			"NegativeCacheTotal":     NegativeCacheTotal,
			"UserTokensStoredTotal":  UserTokensStoredTotal,
			"UserTokensDeletedTotal": UserTokensDeletedTotal,
		}
		for name, collector := range collectors {
			if err := reg.Register(collector); err != nil {
				log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
			}
		}
	}
}

func init() {
	// Ensure metrics are usable even if InitCustomMetrics was not called
	// (unit tests exercising services directly).
	InitCustomMetrics(nil)
}
