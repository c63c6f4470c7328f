//nolint:varnamelen
package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/config"
	"github.com/scottboms/musickit-gateway/domain"
	"github.com/scottboms/musickit-gateway/errors"
	"github.com/scottboms/musickit-gateway/musickit"
	"github.com/scottboms/musickit-gateway/services"
)

// MusicKitAPI struct to hold dependencies.
type MusicKitAPI struct {
	cfg     *config.Config
	creds   domain.Credentials
	tokens  domain.TokenRepository
	minter  *services.DevTokenMinter
	gateway *musickit.Gateway
	recent  *musickit.RecentCache
}

// NewMusicKitAPI initializes the gateway HTTP API.
func NewMusicKitAPI(
	cfg *config.Config,
	tokens domain.TokenRepository,
	minter *services.DevTokenMinter,
	gateway *musickit.Gateway,
	recent *musickit.RecentCache,
) *MusicKitAPI {
	return &MusicKitAPI{
		cfg:     cfg,
		creds:   cfg.Credentials(),
		tokens:  tokens,
		minter:  minter,
		gateway: gateway,
		recent:  recent,
	}
}

// RegisterRoutes registers the gateway routes.
func (a *MusicKitAPI) RegisterRoutes(e *echo.Echo) {
	principal := Principal(a.cfg.PrincipalSecret, true)
	optionalPrincipal := Principal(a.cfg.PrincipalSecret, false)

	g := e.Group("/applemusic")
	g.GET("/config-status", a.ConfigStatusHandler)
	g.GET("/dev-token", a.DevTokenHandler)
	g.POST("/dev-token/refresh", a.RefreshDevTokenHandler)
	g.POST("/store-user-token", a.StoreUserTokenHandler, principal)
	g.POST("/delete-user-token", a.DeleteUserTokenHandler, principal)
	g.GET("/has-token", a.HasTokenHandler, optionalPrincipal)
	g.GET("/token-status", a.TokenStatusHandler, principal)
	g.GET("/storefront", a.StorefrontHandler, principal)
	g.GET("/recent", a.RecentlyPlayedHandler, optionalPrincipal)
	g.GET("/recent/display", a.RecentDisplayHandler)
	g.GET("/song/:id", a.SongDetailsHandler)
	g.GET("/album/:id", a.AlbumDetailsHandler)
	g.GET("/search", a.SearchHandler)
}

// host resolves the hostname token storage and dev-token caching are scoped
// by: the request host, falling back to the configured base domain.
func (a *MusicKitAPI) host(c echo.Context) string {
	if h := c.Request().Host; h != "" {
		return h
	}
	return a.cfg.BaseDomain
}

// applyCORS sets the allow-list gated CORS headers on the dev-token
// endpoints, which browsers call cross-origin from the authored pages.
func (a *MusicKitAPI) applyCORS(c echo.Context) {
	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		return
	}

	for _, allowed := range a.cfg.Origins() {
		if origin == allowed {
			c.Response().Header().Set("Access-Control-Allow-Origin", origin)
			c.Response().Header().Set("Vary", "Origin")
			return
		}
	}
}

// respondError maps a gateway error onto its HTTP status; anything
// unexpected becomes an opaque 500.
func respondError(c echo.Context, err error) error {
	if gerr, ok := err.(*errors.GatewayError); ok {
		return c.JSON(gerr.Status, gerr)
	}

	log.Error().Err(err).Msg("unhandled gateway error")
	return c.JSON(http.StatusInternalServerError, errors.NewStorage("internal error"))
}

// ConfigStatusHandler reports credential health without exposing values.
func (a *MusicKitAPI) ConfigStatusHandler(c echo.Context) error {
	status := services.ConfigStatus(a.creds)
	return c.JSON(http.StatusOK, map[string]any{
		"status":  status.Status,
		"missing": status.Missing,
		"errors":  status.Errors,
	})
}

// DevTokenHandler issues the cached developer token.
func (a *MusicKitAPI) DevTokenHandler(c echo.Context) error {
	if err := services.ValidateCredentials(a.creds); err != nil {
		return respondError(c, err)
	}

	a.applyCORS(c)

	token, err := a.minter.DevToken(c.Request().Context(), a.creds, a.host(c), a.cfg.DevTokenTTLSec)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// RefreshDevTokenHandler busts the cached developer token and mints a new one.
func (a *MusicKitAPI) RefreshDevTokenHandler(c echo.Context) error {
	if err := services.ValidateCredentials(a.creds); err != nil {
		return respondError(c, err)
	}

	a.applyCORS(c)

	token, err := a.minter.Refresh(c.Request().Context(), a.creds, a.host(c), a.cfg.DevTokenTTLSec)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// minUserTokenLength rejects obviously truncated music-user-tokens.
const minUserTokenLength = 32

// StoreUserTokenHandler persists the principal's music-user-token. The
// token is accepted from the JSON body, the token form/query parameter, or
// the Music-User-Token / X-Apple-Music-User-Token headers, in that order.
func (a *MusicKitAPI) StoreUserTokenHandler(c echo.Context) error {
	userID := UserID(c)

	token := a.extractToken(c)
	if len(token) < minUserTokenLength {
		return respondError(c, errors.NewValidation("Missing or invalid token"))
	}

	host := a.host(c)
	if err := a.tokens.Store(c.Request().Context(), host, userID, token); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to store music-user-token")
		return respondError(c, errors.NewStorage("Failed to store token"))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"path":   a.tokens.Path(host, userID),
	})
}

func (a *MusicKitAPI) extractToken(c echo.Context) string {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.Contains(strings.ToLower(contentType), echo.MIMEApplicationJSON) {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err == nil && body.Token != "" {
			return body.Token
		}
	}

	if token := c.FormValue("token"); token != "" {
		return token
	}
	if token := c.QueryParam("token"); token != "" {
		return token
	}
	if token := c.Request().Header.Get("Music-User-Token"); token != "" {
		return token
	}
	return c.Request().Header.Get("X-Apple-Music-User-Token")
}

// DeleteUserTokenHandler removes the principal's stored token.
func (a *MusicKitAPI) DeleteUserTokenHandler(c echo.Context) error {
	userID := UserID(c)

	if err := a.tokens.Delete(c.Request().Context(), a.host(c), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to delete music-user-token")
		return respondError(c, errors.NewStorage("Failed to delete token"))
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HasTokenHandler reports whether the principal has a stored token.
// Anonymous requests simply report false.
func (a *MusicKitAPI) HasTokenHandler(c echo.Context) error {
	hasToken := false
	if userID := UserID(c); userID != "" {
		_, hasToken = a.tokens.Read(c.Request().Context(), a.host(c), userID)
	}

	return c.JSON(http.StatusOK, map[string]bool{"hasToken": hasToken})
}

// TokenStatusHandler is the debug view of the principal's token state.
func (a *MusicKitAPI) TokenStatusHandler(c echo.Context) error {
	userID := UserID(c)
	host := a.host(c)
	_, hasToken := a.tokens.Read(c.Request().Context(), host, userID)

	return c.JSON(http.StatusOK, map[string]any{
		"ok":       hasToken,
		"hasToken": hasToken,
		"cacheKey": "applemusic:token:" + userID,
		"path":     a.tokens.Path(host, userID),
	})
}

// StorefrontHandler returns the principal's storefront from the upstream API.
func (a *MusicKitAPI) StorefrontHandler(c echo.Context) error {
	language := c.QueryParam("language")
	if language == "" {
		language = "en-US"
	}

	payload, err := a.gateway.Storefront(c.Request().Context(), a.creds, a.host(c), UserID(c), language)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

// RecentlyPlayedHandler returns the raw paged recently-played feed for the
// principal, or for the shared site identity when anonymous.
func (a *MusicKitAPI) RecentlyPlayedHandler(c echo.Context) error {
	params := musickit.RecentParams{
		Limit:    intParam(c, "limit", a.cfg.SongsLimit),
		Offset:   intParam(c, "offset", 0),
		Language: defaultString(c.QueryParam("language"), "en-US"),
	}

	payload, err := a.gateway.RecentlyPlayed(c.Request().Context(), a.creds, a.host(c), UserID(c), params)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

// RecentDisplayHandler serves the cached, normalized site-wide feed.
func (a *MusicKitAPI) RecentDisplayHandler(c echo.Context) error {
	limit := intParam(c, "limit", 0)
	language := defaultString(c.QueryParam("language"), "en-US")
	ttl := time.Duration(a.cfg.ResponseCacheTTLSec) * time.Second

	payload := a.recent.RecentForDisplay(c.Request().Context(), a.creds, a.host(c), limit, language, ttl)
	return c.JSON(http.StatusOK, payload)
}

// SongDetailsHandler returns one normalized catalog song.
func (a *MusicKitAPI) SongDetailsHandler(c echo.Context) error {
	language := defaultString(c.QueryParam("l"), "en-US")

	song, err := a.gateway.SongDetails(c.Request().Context(), a.creds, a.host(c), c.Param("id"), language)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, song)
}

// AlbumDetailsHandler returns one normalized catalog album.
func (a *MusicKitAPI) AlbumDetailsHandler(c echo.Context) error {
	language := defaultString(c.QueryParam("l"), "en-US")

	album, err := a.gateway.AlbumDetails(c.Request().Context(), a.creds, a.host(c), c.Param("id"), language)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, album)
}

// searchTimeout bounds search calls tighter than the general client
// timeout; interactive typeahead gives up early.
const searchTimeout = 7 * time.Second

// SearchHandler queries the catalog for songs or albums.
func (a *MusicKitAPI) SearchHandler(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c, searchTimeout)
	defer cancel()

	results, err := a.gateway.Search(
		ctx,
		a.creds,
		a.host(c),
		c.QueryParam("q"),
		c.QueryParam("type"),
		defaultString(c.QueryParam("sf"), a.cfg.Storefront),
		defaultString(c.QueryParam("language"), "en-US"),
		intParam(c, "limit", 10),
	)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, results)
}

func contextWithTimeout(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), timeout)
}

func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
