package musickit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/errors"
	"github.com/scottboms/musickit-gateway/services"
)

const (
	defaultStorefront  = "us"
	defaultRecentLimit = 15
	maxSearchLimit     = 25
)

// storefrontPattern accepts a lowercase region code with an optional
// country suffix. The input is lowercased first, so suffixed forms fall
// back to the default; this mirrors the long-standing upstream contract.
var storefrontPattern = regexp.MustCompile(`^[a-z]{2}(?:-[A-Z]{2})?$`)

// Gateway proxies and normalizes Apple Music API calls. Credentials are
// validated before every outbound call so configuration problems surface
// without wasting an upstream round trip.
type Gateway struct {
	client *Client
	minter *services.DevTokenMinter
	tokens domain.TokenRepository

	// storefront is the configured region code, or "auto" to resolve via
	// any available shared user token.
	storefront  string
	devTokenTTL int
}

// NewGateway wires the catalog gateway from its collaborators.
func NewGateway(client *Client, minter *services.DevTokenMinter, tokens domain.TokenRepository, storefront string, devTokenTTL int) *Gateway {
	return &Gateway{
		client:      client,
		minter:      minter,
		tokens:      tokens,
		storefront:  storefront,
		devTokenTTL: devTokenTTL,
	}
}

// RecentParams are the caller-controlled knobs of a recently-played query.
type RecentParams struct {
	Limit    int
	Offset   int
	Language string
}

// RecentlyPlayed fetches the user's recently played tracks and returns the
// raw paged payload. Requires a stored music-user-token for the user.
func (g *Gateway) RecentlyPlayed(ctx context.Context, creds domain.Credentials, host, userID string, params RecentParams) (json.RawMessage, error) {
	if err := services.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	userToken, ok := g.tokens.Read(ctx, host, userID)
	if !ok {
		return nil, errors.NewUnauthorized("Missing music-user-token (user not authorized yet)")
	}

	devToken, err := g.minter.Mint(creds, devTokenDuration(g.devTokenTTL))
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if params.Language != "" {
		q.Set("l", params.Language)
	}

	body, err := g.client.Get(ctx, "recently_played", "/v1/me/recent/played/tracks?"+q.Encode(), devToken, userToken, nil)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}

// Storefront fetches the storefront of a specific authenticated user. The
// caller must have established a principal; a missing stored token is an
// authorization failure, not an authentication one.
func (g *Gateway) Storefront(ctx context.Context, creds domain.Credentials, host, userID, language string) (json.RawMessage, error) {
	if err := services.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	userToken, ok := g.tokens.Read(ctx, host, userID)
	if !ok {
		return nil, errors.NewForbidden("Missing Music-User-Token")
	}

	devToken, err := g.minter.DevToken(ctx, creds, host, g.devTokenTTL)
	if err != nil {
		return nil, err
	}

	body, err := g.client.Get(ctx, "storefront", "/v1/me/storefront", devToken, userToken, map[string]string{
		"Accept-Language": language,
	})
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}

// resolveStorefront picks the storefront for catalog lookups: the
// configured value wins; "auto" (or absence) falls back to the storefront
// of any available shared user token, and finally to "us". Resolution
// happens per call; the dev-token cache absorbs the expensive half.
func (g *Gateway) resolveStorefront(ctx context.Context, creds domain.Credentials, host, devToken, language string) string {
	if g.storefront != "" && g.storefront != "auto" {
		return g.storefront
	}

	userToken, ok := g.tokens.ReadAny(ctx, host)
	if !ok {
		return defaultStorefront
	}

	body, err := g.client.Get(ctx, "storefront", "/v1/me/storefront", devToken, userToken, map[string]string{
		"Accept-Language": language,
	})
	if err != nil {
		log.Debug().Err(err).Msg("storefront auto-detection failed, using default")
		return defaultStorefront
	}

	var page domain.Page
	if err := json.Unmarshal(body, &page); err != nil || len(page.Data) == 0 || page.Data[0].ID == "" {
		return defaultStorefront
	}

	return page.Data[0].ID
}

// SongDetails looks up one catalog song and normalizes it for display.
// Developer-token-only; no user token is required.
func (g *Gateway) SongDetails(ctx context.Context, creds domain.Credentials, host, songID, language string) (*domain.Song, error) {
	if err := services.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	devToken, err := g.minter.DevToken(ctx, creds, host, g.devTokenTTL)
	if err != nil {
		return nil, err
	}

	sf := g.resolveStorefront(ctx, creds, host, devToken, language)
	path := fmt.Sprintf("/v1/catalog/%s/songs/%s", url.PathEscape(sf), url.PathEscape(songID))

	body, err := g.client.Get(ctx, "song_details", path, devToken, "", map[string]string{
		"Accept-Language": language,
	})
	if err != nil {
		return nil, err
	}

	var page domain.Page
	if err := json.Unmarshal(body, &page); err != nil || len(page.Data) == 0 {
		return nil, errors.NewUpstream(500, decodeBody(body))
	}

	song := normalizeSong(page.Data[0])
	song.Raw = json.RawMessage(body)
	return song, nil
}

// AlbumDetails looks up one catalog album, normalizing its track list and
// aggregate fields.
func (g *Gateway) AlbumDetails(ctx context.Context, creds domain.Credentials, host, albumID, language string) (*domain.Album, error) {
	if err := services.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	devToken, err := g.minter.DevToken(ctx, creds, host, g.devTokenTTL)
	if err != nil {
		return nil, err
	}

	sf := g.resolveStorefront(ctx, creds, host, devToken, language)
	path := fmt.Sprintf("/v1/catalog/%s/albums/%s", url.PathEscape(sf), url.PathEscape(albumID))

	body, err := g.client.Get(ctx, "album_details", path, devToken, "", map[string]string{
		"Accept-Language": language,
	})
	if err != nil {
		return nil, err
	}

	var page domain.Page
	if err := json.Unmarshal(body, &page); err != nil || len(page.Data) == 0 {
		return nil, errors.NewUpstream(500, decodeBody(body))
	}

	album := normalizeAlbum(page.Data[0])
	album.Raw = json.RawMessage(body)
	return album, nil
}

// SearchResponse is the uniform search payload.
type SearchResponse struct {
	OK         bool                  `json:"ok"`
	Results    []domain.SearchResult `json:"results"`
	Count      int                   `json:"count"`
	Type       string                `json:"type"`
	Storefront string                `json:"storefront"`
	Language   string                `json:"language"`
}

// Search queries the catalog for songs or albums. The query must be at
// least two characters after trimming; the type defaults to songs, the
// storefront to "us", and the limit is clamped to [1, 25]. Validation runs
// before any network call.
func (g *Gateway) Search(ctx context.Context, creds domain.Credentials, host, query, searchType, storefront, language string, limit int) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, errors.NewValidation("Query must be at least 2 characters")
	}

	searchType = strings.ToLower(searchType)
	if searchType != "songs" && searchType != "albums" {
		searchType = "songs"
	}

	sf := strings.ToLower(storefront)
	if sf == "" {
		sf = g.storefront
	}
	if sf == "auto" || !storefrontPattern.MatchString(sf) {
		sf = defaultStorefront
	}

	if limit < 1 {
		limit = 1
	} else if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if err := services.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	devToken, err := g.minter.DevToken(ctx, creds, host, g.devTokenTTL)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("term", query)
	q.Set("types", searchType)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("l", language)

	path := fmt.Sprintf("/v1/catalog/%s/search?%s", url.PathEscape(sf), q.Encode())
	body, err := g.client.Get(ctx, "search", path, devToken, "", nil)
	if err != nil {
		return nil, err
	}

	var envelope domain.SearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewUpstream(500, decodeBody(body))
	}

	results := []domain.SearchResult{}
	if searchType == "albums" {
		if envelope.Results.Albums != nil {
			for _, it := range envelope.Results.Albums.Data {
				results = append(results, normalizeSearchAlbum(it))
			}
		}
	} else {
		if envelope.Results.Songs != nil {
			for _, it := range envelope.Results.Songs.Data {
				results = append(results, normalizeSearchSong(it))
			}
		}
	}

	return &SearchResponse{
		OK:         true,
		Results:    results,
		Count:      len(results),
		Type:       searchType,
		Storefront: sf,
		Language:   language,
	}, nil
}

func devTokenDuration(ttlSeconds int) time.Duration {
	if ttlSeconds < 300 {
		ttlSeconds = 300
	}
	return time.Duration(ttlSeconds) * time.Second
}
