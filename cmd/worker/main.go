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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/repository/sqlstore"
	"github.com/jwalitptl/servicebook/internal/service/event"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/messaging/redis"
	"github.com/jwalitptl/servicebook/pkg/metrics"
	"github.com/jwalitptl/servicebook/pkg/worker"
)

func setupHealthCheck(addr string, store *sqlstore.Storage, registry *prometheus.Registry, l *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	healthAddr := flag.String("health-addr", ":8081", "address for health and metrics endpoints")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Redis.URL == "" {
		log.Fatal().Msg("redis.url must be set to run the outbox worker")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	}).WithFields(map[string]interface{}{"component": "outbox-worker"})
	log.Logger = appLogger.ZL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.NewDB(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	store := sqlstore.New(db)
	defer store.Close()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New("servicebook_worker", registry)

	processor := worker.NewOutboxProcessor(
		store.Repos().Outbox,
		broker,
		worker.OutboxProcessorConfig{
			Channel:       cfg.Redis.Channel,
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			ClaimTimeout:  cfg.Outbox.ClaimTimeout,
		},
		appLogger,
		m,
	)
	cleaner := worker.NewOutboxCleanupWorker(store.Repos().Outbox, event.NewEventService(time.Now), cfg.Outbox.Retention, time.Hour, appLogger)

	healthSrv := setupHealthCheck(*healthAddr, store, registry, appLogger)

	go cleaner.Start(ctx)
	processor.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	healthSrv.Shutdown(shutdownCtx)
}
