package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/metrics"
	"github.com/angelmondragon/tripcrew-backend/pkg/migrate"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/registry"
	"github.com/angelmondragon/tripcrew-backend/pkg/redis"
)

func main() {
	inspect := flag.Bool("dlq", false, "print dead-lettered events as JSON lines and exit")
	dlqReason := flag.String("dlq-reason", "", "with -dlq: only this reason (max_attempts|non_retryable)")
	dlqLimit := flag.Int("dlq-limit", 50, "with -dlq: maximum rows")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: consumerName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: consumerName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.AutoRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	if *inspect {
		filter := outbox.DLQFilter{Limit: *dlqLimit}
		if *dlqReason != "" {
			reason, err := enums.ParseOutboxDLQErrorReason(*dlqReason)
			if err != nil {
				logg.Error(context.Background(), "invalid -dlq-reason", err)
				os.Exit(1)
			}
			filter.Reason = reason
		}
		err := printDLQ(context.Background(), os.Stdout, outbox.NewDLQRepository(dbClient.DB()), filter)
		if closeErr := dbClient.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
		}
		if err != nil {
			logg.Error(context.Background(), "failed to list dead letters", err)
			os.Exit(1)
		}
		return
	}

	if !cfg.Redis.Enabled() {
		logg.Error(context.Background(), "outbox publisher requires redis", errors.New("TRIPCREW_REDIS_URL or TRIPCREW_REDIS_ADDR must be set"))
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.Outbox.Channel)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}

	dedupe, err := idempotency.NewGuard(redisClient, cfg.Outbox.DedupeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build dedupe guard", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Publisher:     redisClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Dedupe:        dedupe,
		Metrics:       metrics.NewOutboxMetrics(promRegistry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"channel": cfg.Outbox.Channel,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.Outbox.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

	logg.Info(ctx, "starting outbox publisher")

	runErr := service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	closeErr := multierr.Combine(
		metricsServer.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error releasing resources", closeErr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
