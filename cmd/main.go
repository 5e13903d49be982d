package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/venuemap/internal/api"
	"github.com/UnknownOlympus/venuemap/internal/config"
	"github.com/UnknownOlympus/venuemap/internal/geocoding"
	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/server"
	"github.com/UnknownOlympus/venuemap/internal/service"
	"github.com/UnknownOlympus/venuemap/internal/session"
	"github.com/UnknownOlympus/venuemap/internal/venuecache"
	"github.com/UnknownOlympus/venuemap/internal/viewport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Keep the API session in Postgres when a database is configured, in memory otherwise.
	store, health, closeDB := setupSessionStore(ctx, cfg, logger)
	defer closeDB()

	client, err := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		RateLimit: cfg.API.RateLimit,
		Timeout:   cfg.Map.FetchTimeout,
		Session:   store,
		Metrics:   appMetrics,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create places API client: %v", err)
	}

	if cfg.API.Username != "" {
		if err = client.Login(ctx, cfg.API.Username, cfg.API.Password); err != nil {
			logger.ErrorContext(ctx, "Login failed, continuing anonymously", "error", err)
		}
	}

	// Share venue results between maps through Redis when it is configured.
	var venues viewport.Source = client
	if rdb := venuecache.Open(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		defer rdb.Close()
		venues = venuecache.New(client, rdb, cfg.Redis.TTL, appMetrics, logger)
		logger.InfoContext(ctx, "Shared venue cache enabled", "addr", cfg.Redis.Addr)
	}

	// Create geocoding provider using factory pattern based on configuration
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Type),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Region:    cfg.Geocoder.Region,
		Language:  cfg.Geocoder.Language,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}

	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Type)

	contributions := service.NewContributionService(logger, client, geoProvider, cfg.Geocoder.Type, appMetrics)

	srv := server.New(server.Config{
		Places:        client,
		Venues:        venues,
		Contributions: contributions,
		Loader: viewport.Options{
			Debounce:        cfg.Map.Debounce,
			CacheSize:       cfg.Map.CacheSize,
			FetchTimeout:    cfg.Map.FetchTimeout,
			AbortSuperseded: cfg.Map.AbortSuperseded,
		},
		Metrics:  appMetrics,
		Gatherer: reg,
		Health:   health,
		Logger:   logger,
	})

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	if err = srv.Run(ctx, cfg.Port); err != nil {
		logger.ErrorContext(ctx, "HTTP server stopped with error", "error", err)
	}

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// setupSessionStore returns the token store, an optional health check and a cleanup function.
func setupSessionStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (session.Store, func(context.Context) error, func()) {
	if cfg.Database.Host == "" {
		logger.InfoContext(ctx, "No database configured, keeping the session in memory")
		return session.NewMemoryStore(), nil, func() {}
	}

	dtb, err := session.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	account := cfg.API.Username
	if account == "" {
		account = "anonymous"
	}

	store := session.NewPostgresStore(dtb, account, logger)
	if err = store.EnsureSchema(ctx); err != nil {
		dtb.Close()
		log.Fatalf("Failed to prepare session table: %v", err)
	}

	return store, dtb.Ping, dtb.Close
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       slog.LevelWarn,
			ReplaceAttr: dropTime,
		}))
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelError,
		ReplaceAttr: dropTime,
	}))
	log.Error(
		"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
		slog.String("available_envs", "local, development, production"))

	return log
}

// dropTime removes the timestamp attribute.
func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
