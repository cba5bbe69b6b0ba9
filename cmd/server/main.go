package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/adapter/discord"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/httpserver"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/metrics"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/postgres"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/redis"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/static"
	"github.com/OtterDevelopment/twitch-hook/internal/adapter/twitch"
	"github.com/OtterDevelopment/twitch-hook/internal/app"
	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/config"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/logging"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 10 * time.Second
	warmupTimeout         = 10 * time.Second
	cacheEvictionInterval = time.Minute
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, reg prometheus.Registerer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewQueryTracer(metrics.NewDatabaseMetrics(reg)))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, using in-process token cache without deduplication")
		return nil
	}

	redisMetrics := metrics.NewRedisMetrics(reg)
	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(redisMetrics), redis.NewBreakerHook(redisMetrics))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

type directorySetup struct {
	directory    domain.BroadcasterDirectory
	healthChecks []httpserver.HealthCheck
	cleanup      []func()
}

func setupDirectory(ctx context.Context, cfg *config.Config, rdb *goredis.Client, reg prometheus.Registerer, clock clockwork.Clock) directorySetup {
	if cfg.DirectoryBackend == config.BackendStatic {
		dir, err := static.Load(cfg.BroadcastersFile)
		if err != nil {
			slog.Error("Failed to load broadcaster file", "path", cfg.BroadcastersFile, "error", err)
			os.Exit(1)
		}
		go func() {
			if err := dir.Watch(ctx); err != nil {
				slog.Error("Broadcaster file watcher stopped", "error", err)
			}
		}()
		return directorySetup{directory: dir}
	}

	pool := setupDB(cfg, reg)
	repo := postgres.NewBroadcasterRepo(pool)
	setup := directorySetup{
		directory:    repo,
		healthChecks: []httpserver.HealthCheck{{Name: "postgres", Check: pool.Ping}},
		cleanup:      []func(){pool.Close},
	}

	if rdb != nil {
		cache := redis.NewDirectoryCache(rdb, repo, cfg.DirectoryCacheTTL, clock, metrics.NewDirectoryCacheMetrics(reg))
		setup.cleanup = append(setup.cleanup, cache.StartEvictionTimer(cacheEvictionInterval))
		go redis.NewDirectoryInvalidationSubscriber(rdb, cache).Start(ctx)
		setup.directory = cache
	}

	return setup
}

func warmUpToken(credentials *twitch.CredentialManager) {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	if _, err := credentials.Refresh(ctx); err != nil {
		slog.Warn("Initial app access token fetch failed, will retry on first notification", "error", err)
		return
	}
	slog.Info("App access token acquired")
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version, "directory_backend", cfg.DirectoryBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(registry)
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	rdb := setupRedis(ctx, cfg, registry)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	dirSetup := setupDirectory(ctx, cfg, rdb, registry, clock)
	defer func() {
		for _, fn := range dirSetup.cleanup {
			fn()
		}
	}()
	healthChecks := dirSetup.healthChecks

	var tokenStore domain.TokenStore = twitch.NewMemoryTokenStore()
	var dedup domain.MessageDeduplicator
	if rdb != nil {
		tokenStore = redis.NewTokenStore(rdb, clock)
		dedup = redis.NewDeduplicator(rdb, cfg.DedupWindow)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	credentials := twitch.NewCredentialManager(cfg.ClientID, cfg.ClientSecret, cfg.TwitchTokenURL, tokenStore, httpClient, clock)
	warmUpToken(credentials)

	helixClient, err := twitch.NewHelixClient(cfg.ClientID, cfg.TwitchAPIBaseURL, httpClient)
	if err != nil {
		slog.Error("Failed to create Twitch API client", "error", err)
		os.Exit(1)
	}

	directory := dirSetup.directory
	announcer := app.NewAnnouncer(directory, discord.NewClient(httpClient))
	relay := app.NewRelay(credentials, twitch.NewChannelClient(helixClient), announcer, relayMetrics, clock, cfg.DispatchTimeout)
	webhook := twitch.NewWebhookHandler(twitch.NewVerifier(cfg.RequestSecret), relay, dedup, relayMetrics)
	registrar := app.NewRegistrar(directory, credentials, twitch.NewSubscriptionRegistrar(helixClient, cfg.CallbackURL(), cfg.RequestSecret))

	srv := httpserver.NewServer(cfg, webhook, registrar, app.NewBroadcasters(directory), registry, healthChecks)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	if err := relay.Wait(shutdownCtx); err != nil {
		slog.Warn("Pending announcements abandoned", "error", err)
	}

	slog.Info("Shutdown complete")
}
