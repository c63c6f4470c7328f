package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "github.com/scottboms/musickit-gateway/api/echo"
	"github.com/scottboms/musickit-gateway/cache"
	redicache "github.com/scottboms/musickit-gateway/cache/redis"
	"github.com/scottboms/musickit-gateway/config"
	"github.com/scottboms/musickit-gateway/internal/metrics"
	"github.com/scottboms/musickit-gateway/musickit"
	"github.com/scottboms/musickit-gateway/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("storefront", cfg.Storefront).
		Str("storage_root", cfg.StorageRoot).
		Bool("redis", cfg.RedisAddr != "").
		Msg("starting musickit-gateway")

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	tier1 := buildCache(cfg)
	defer tier1.Close()

	tokens := services.NewTokenStore(cfg.StorageRoot, tier1, cfg.TokenCacheTTL())
	minter := services.NewDevTokenMinter(tier1)
	client := musickit.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout())
	gateway := musickit.NewGateway(client, minter, tokens, cfg.Storefront, cfg.DevTokenTTLSec)
	recent := musickit.NewRecentCache(tier1, gateway)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echoapi.RequestID())

	api := echoapi.NewMusicKitAPI(cfg, tokens, minter, gateway, recent)
	api.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildCache picks the Tier1 backend: Redis when configured, the in-memory
// ttlcache otherwise.
func buildCache(cfg *config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redicache.NewCache(client, "musickit")
}
