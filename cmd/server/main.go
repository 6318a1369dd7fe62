package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	rediscache "github.com/mamadbah2/agrimarket/internal/cache/redis"
	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/events"
	"github.com/mamadbah2/agrimarket/internal/metrics"
	"github.com/mamadbah2/agrimarket/internal/repository"
	"github.com/mamadbah2/agrimarket/internal/repository/memory"
	"github.com/mamadbah2/agrimarket/internal/repository/mongodb"
	"github.com/mamadbah2/agrimarket/internal/repository/postgres"
	"github.com/mamadbah2/agrimarket/internal/repository/sheets"
	"github.com/mamadbah2/agrimarket/internal/scheduler"
	"github.com/mamadbah2/agrimarket/internal/server/handlers"
	"github.com/mamadbah2/agrimarket/internal/server/router"
	buyersvc "github.com/mamadbah2/agrimarket/internal/service/buyers"
	"github.com/mamadbah2/agrimarket/internal/service/geocoding"
	marketplacesvc "github.com/mamadbah2/agrimarket/internal/service/marketplace"
	"github.com/mamadbah2/agrimarket/internal/service/matching"
	"github.com/mamadbah2/agrimarket/internal/service/notify"
	reportingsvc "github.com/mamadbah2/agrimarket/internal/service/reporting"
	geoclient "github.com/mamadbah2/agrimarket/pkg/clients/geocoding"
	whatsappclient "github.com/mamadbah2/agrimarket/pkg/clients/whatsapp"
	"github.com/mamadbah2/agrimarket/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	resolver, closeResolver := buildResolver(ctx, cfg, baseLogger)
	defer closeResolver()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ServiceName, 0, baseLogger.Named("events.kafka"))
		kafkaPublisher.Start()
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		baseLogger.Info("kafka event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var notifiers notify.Multi
	if cfg.WhatsApp.Enabled() {
		notifiers = append(notifiers, notify.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), baseLogger.Named("notify.whatsapp")))
	}
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.SMTP, baseLogger.Named("notify.email")))
	}
	var notifier marketplacesvc.BuyerNotifier
	if len(notifiers) > 0 {
		notifier = notifiers
	} else {
		baseLogger.Warn("no buyer notification channel configured")
	}

	buyerService := buyersvc.NewService(store, resolver, matching.ReferenceBuyers, baseLogger.Named("svc.buyers"))
	if cfg.Marketplace.SeedReferenceBuyers {
		if _, err := buyerService.Seed(ctx); err != nil {
			baseLogger.Error("failed to seed reference buyers", zap.Error(err))
		}
	}

	matcher := matching.NewMatcher(store, resolver, matching.Config{
		DefaultMaxDistance: cfg.Marketplace.DefaultMaxDistanceKm,
	}, appMetrics, baseLogger.Named("svc.matching"))

	marketplaceService := marketplacesvc.NewService(marketplacesvc.Deps{
		Transactions: store,
		Buyers:       store,
		Fields:       store,
		Publisher:    publisher,
		Notifier:     notifier,
		Metrics:      appMetrics,
		Logger:       baseLogger.Named("svc.marketplace"),
	})

	reportingSvc, err := buildReporting(ctx, cfg, store, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init reporting", zap.Error(err))
	}

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, buyerService, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handler := handlers.NewMarketplaceHandler(matcher, buyerService, marketplaceService, store, baseLogger.Named("handlers.marketplace"))
	engine := router.New(handler, router.Options{
		GinMode:        cfg.Server.GinMode,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		Metrics:        appMetrics,
		Gatherer:       registry,
		Logger:         baseLogger.Named("router"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := marketplaceService.Wait(shutdownCtx); err != nil {
		baseLogger.Warn("buyer notices still pending at shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := postgres.Connect(connectCtx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(connectCtx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &postgres.Repo{DB: pool}, nil
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	default:
		return mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
	}
}

// buildResolver layers the remote geocoder and the redis cache over the static
// table. The returned func releases the cache connection.
func buildResolver(ctx context.Context, cfg *config.Config, log *zap.Logger) (geocoding.LocationResolver, func()) {
	noop := func() {}
	var resolver geocoding.LocationResolver = geocoding.NewStaticResolver()
	if cfg.Geocoding.BaseURL == "" {
		return resolver, noop
	}

	remote := geoclient.NewClient(geoclient.Config{BaseURL: cfg.Geocoding.BaseURL, UserAgent: cfg.Geocoding.UserAgent})
	resolver = geocoding.NewFallbackResolver(remote, resolver, log.Named("geocoding"))

	if cfg.Redis.Addr == "" {
		return resolver, noop
	}
	cache, err := rediscache.New(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Warn("redis unavailable, geocoding results are not cached", zap.Error(err))
		return resolver, noop
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}
	return geocoding.NewCachedResolver(resolver, cache, cfg.Redis.GeocodeCacheTTL, log.Named("geocoding.cache")), closeCache
}

func buildReporting(ctx context.Context, cfg *config.Config, store repository.Store, log *zap.Logger) (*reportingsvc.Service, error) {
	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, err
	}

	sinks := []repository.ReportRepository{store}
	if cfg.Sheets.Enabled() {
		sheet, err := sheets.NewGoogleSheet(ctx, cfg.Sheets, log.Named("repo.sheets"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sheets.NewReportExporter(sheet, log.Named("repo.sheets")))
	}

	return reportingsvc.NewService(store, loc, log.Named("svc.reporting"), sinks...), nil
}
