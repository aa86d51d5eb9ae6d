package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Dzaakk/playtime-gateway/config"
	"github.com/Dzaakk/playtime-gateway/internal/handler"
	"github.com/Dzaakk/playtime-gateway/internal/limiter"
	"github.com/Dzaakk/playtime-gateway/internal/metrics"
	"github.com/Dzaakk/playtime-gateway/internal/middleware"
	"github.com/Dzaakk/playtime-gateway/internal/platform"
	"github.com/Dzaakk/playtime-gateway/internal/playtime"
	"github.com/Dzaakk/playtime-gateway/internal/storage/dynamo"
	"github.com/Dzaakk/playtime-gateway/internal/storage/memory"
	"github.com/Dzaakk/playtime-gateway/internal/storage/redis"
	"github.com/Dzaakk/playtime-gateway/internal/storage/sqlite"
	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	b := &backends{cfg: cfg, logger: logger}
	defer b.close()

	store, err := b.initStorage()
	if err != nil {
		logger.Error("failed to initialize rate limiter storage", "error", err)
		os.Exit(1)
	}
	cache, err := b.initCache()
	if err != nil {
		logger.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	m, err := metrics.New(metrics.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	l := limiter.NewLimiter(store, limiter.Config{
		Window:      cfg.RateLimitWindow,
		MaxRequests: cfg.RateLimitMax,
		Atomic:      cfg.RateLimitAtomic,
	}, logger)

	svc := playtime.NewService(cache, cfg.CacheTTL(), logger, buildAdapters(cfg, logger)...).WithRecorder(m)
	playtimeHandler := handler.NewPlaytimeHandler(svc, cfg.RoutedPlatforms, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Playtime:       playtimeHandler,
		RateLimit:      middleware.NewRateLimitMiddleware(l, logger, middleware.ClientAddr(cfg.TrustForwardedFor)).WithMetrics(m),
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server",
			"addr", httpServer.Addr,
			"platforms", playtimeHandler.Platforms(),
			"storage", cfg.StorageType,
			"cache", cfg.CacheType,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// backends builds the shared store clients once and closes them on exit.
type backends struct {
	cfg     config.Config
	logger  *slog.Logger
	rdb     *goredis.Client
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func (b *backends) initStorage() (limiter.Store, error) {
	switch b.cfg.StorageType {
	case config.StorageRedis:
		rdb, err := b.redisClient()
		if err != nil {
			return nil, err
		}
		return redis.NewRedisStore(rdb, b.cfg.RateLimiterTable), nil
	case config.StorageDynamo:
		client, err := dynamo.NewClient(b.cfg.AWSRegion, b.cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		b.logger.Info("using dynamodb storage", "table", b.cfg.RateLimiterTable)
		return dynamo.NewDynamoStore(client, b.cfg.RateLimiterTable), nil
	case config.StorageSQLite:
		s, err := sqlite.Open(b.cfg.SQLitePath, b.cfg.RateLimiterTable)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { s.Close() })
		b.logger.Info("using sqlite storage", "path", b.cfg.SQLitePath)
		return s, nil
	default:
		b.logger.Info("using in-memory storage")
		s := memory.NewMemoryStore()
		b.closers = append(b.closers, s.Close)
		return s, nil
	}
}

func (b *backends) initCache() (playtime.Cache, error) {
	switch b.cfg.CacheType {
	case config.StorageRedis:
		rdb, err := b.redisClient()
		if err != nil {
			return nil, err
		}
		return redis.NewRedisCache(rdb, b.cfg.CacheTable, b.cfg.CacheTTL()), nil
	case config.StorageDynamo:
		client, err := dynamo.NewClient(b.cfg.AWSRegion, b.cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		b.logger.Info("using dynamodb cache", "table", b.cfg.CacheTable)
		return dynamo.NewDynamoCache(client, b.cfg.CacheTable, b.cfg.CacheTTL()), nil
	default:
		b.logger.Info("using in-memory cache", "ttl", b.cfg.CacheTTL())
		c := memory.NewMemoryCache(b.cfg.CacheTTL())
		b.closers = append(b.closers, c.Close)
		return c, nil
	}
}

func (b *backends) redisClient() (*goredis.Client, error) {
	if b.rdb != nil {
		return b.rdb, nil
	}

	b.logger.Info("connecting to Redis", "addr", b.cfg.RedisAddr)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     b.cfg.RedisAddr,
		Password: b.cfg.RedisPassword,
		DB:       b.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	b.logger.Info("successfully connected to Redis")
	b.rdb = rdb
	b.closers = append(b.closers, func() { rdb.Close() })
	return rdb, nil
}

// buildAdapters registers every platform, routed or not. Each vendor gets
// its own pacing bucket.
func buildAdapters(cfg config.Config, logger *slog.Logger) []playtime.Adapter {
	opts := platform.Options{Logger: logger, Timeout: cfg.UpstreamTimeout}
	client := func(p config.Platform, def string) *vendor.Client {
		return vendor.NewClient(vendor.Options{
			BaseURL: p.BaseURLOr(def),
			Timeout: cfg.UpstreamTimeout,
			Limiter: rate.NewLimiter(rate.Limit(cfg.VendorRPS), cfg.VendorBurst),
		})
	}

	return []playtime.Adapter{
		platform.NewSteam(vendor.NewSteamClient(client(cfg.Steam, vendor.SteamBaseURL), cfg.Steam.Credentials()), cfg.Steam.Credentials(), opts),
		platform.NewRiot(vendor.NewRiotClient(client(cfg.Riot, vendor.RiotBaseURL), cfg.Riot.Credentials()), cfg.Riot.Credentials(), opts),
		platform.NewXbox(vendor.NewXboxClient(client(cfg.Xbox, vendor.XboxBaseURL), cfg.Xbox.Credentials()), cfg.Xbox.Credentials(), opts),
		platform.NewPlayStation(vendor.NewPlayStationClient(client(cfg.PlayStation, vendor.PlayStationBaseURL), cfg.PlayStation.Credentials()), cfg.PlayStation.Credentials(), opts),
		platform.NewEpic(vendor.NewEpicClient(client(cfg.Epic, vendor.EpicBaseURL), cfg.Epic.Credentials()), cfg.Epic.Credentials(), opts),
		platform.NewNintendo(vendor.NewNintendoClient(client(cfg.Nintendo, vendor.NintendoBaseURL), cfg.Nintendo.Credentials()), cfg.Nintendo.Credentials(), opts),
		platform.NewRoblox(vendor.NewRobloxClient(client(cfg.Roblox, vendor.RobloxBaseURL), cfg.Roblox.Credentials()), cfg.Roblox.Credentials(), opts),
	}
}
