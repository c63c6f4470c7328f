package musickit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recentFixture = `{"data":[
	{"id":"1440857781","attributes":{"name":"Karma Police","artistName":"Radiohead",
	 "albumName":"OK Computer","durationInMillis":264000,
	 "url":"https://music.example/karma-police",
	 "artwork":{"url":"https://img.example/{w}x{h}bb.jpg"}}},
	{"id":"i.library01","attributes":{"name":"Library Track","artistName":"Somebody",
	 "durationInMillis":65000,"url":"https://music.example/hidden"}}]}`

func newRecentStack(t *testing.T, upstream *httptest.Server) (*RecentCache, *testStack) {
	t.Helper()

	stack := newTestStack(t, upstream, "us")
	return NewRecentCache(stack.tier1, stack.gateway), stack
}

func TestRecentForDisplayCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/me/recent/played/tracks" {
			calls.Add(1)
		}
		w.Write([]byte(recentFixture))
	}))
	defer upstream.Close()

	recent, stack := newRecentStack(t, upstream)
	ctx := context.Background()
	require.NoError(t, stack.tokens.Store(ctx, testHost, "user-1", "shared-token-value-00000000000000"))

	first := recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	require.Nil(t, first.Error)
	require.Len(t, first.Items, 2)

	second := recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	require.Nil(t, second.Error)
	assert.Equal(t, first, second)

	assert.Equal(t, int32(1), calls.Load(), "second call within the TTL window must be served from cache")

	// Items are display-normalized: 240px artwork, no url for internal ids.
	require.NotNil(t, first.Items[0].Image)
	assert.Equal(t, "https://img.example/240x240bb.jpg", *first.Items[0].Image)
	assert.Nil(t, first.Items[1].URL)
}

func TestRecentForDisplayZeroTTLDisablesCaching(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/me/recent/played/tracks" {
			calls.Add(1)
		}
		w.Write([]byte(recentFixture))
	}))
	defer upstream.Close()

	recent, stack := newRecentStack(t, upstream)
	ctx := context.Background()
	require.NoError(t, stack.tokens.Store(ctx, testHost, "user-1", "shared-token-value-00000000000000"))

	recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", 0)
	recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", 0)

	assert.Equal(t, int32(2), calls.Load(), "ttl=0 must refetch every time")
}

func TestRecentForDisplayNegativeCachesMissingToken(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	recent, stack := newRecentStack(t, upstream)
	ctx := context.Background()

	// No shared token stored at all.
	payload := recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	require.NotNil(t, payload.Error)
	assert.Equal(t, "Missing shared Music-User-Token (site)", *payload.Error)
	assert.Empty(t, payload.Items)

	// The failure itself is cached, so the next call is answered without
	// another directory scan or upstream attempt.
	again := recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	require.NotNil(t, again.Error)
	assert.Equal(t, *payload.Error, *again.Error)

	assert.Zero(t, calls.Load())
}

func TestRecentForDisplayNegativeCachesUpstreamFailure(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":[{"title":"Internal Server Error"}]}`))
	}))
	defer upstream.Close()

	recent, stack := newRecentStack(t, upstream)
	ctx := context.Background()
	require.NoError(t, stack.tokens.Store(ctx, testHost, "user-1", "shared-token-value-00000000000000"))

	payload := recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	require.NotNil(t, payload.Error)
	assert.Equal(t, "Apple Music API error", *payload.Error)

	recent.RecentForDisplay(ctx, stack.creds, testHost, 12, "en-US", time.Minute)
	assert.Equal(t, int32(1), calls.Load(), "upstream failure must be negative-cached")
}

func TestRecentForDisplayKeyVariesByParams(t *testing.T) {
	assert.NotEqual(t, recentCacheKey(12, "en-US"), recentCacheKey(12, "de-DE"))
	assert.NotEqual(t, recentCacheKey(12, "en-US"), recentCacheKey(24, "en-US"))
	assert.Equal(t, recentCacheKey(12, "en-US"), recentCacheKey(12, "en-US"))
}
