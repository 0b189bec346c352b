package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/repository/sqlstore"
	"github.com/jwalitptl/servicebook/internal/server"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/messaging"
	"github.com/jwalitptl/servicebook/pkg/messaging/redis"
	"github.com/jwalitptl/servicebook/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	embedWorker := flag.Bool("outbox", true, "publish outbox events from this process")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Log.Level))
	log.Logger = appLogger.ZL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	store := sqlstore.New(db)
	defer store.Close()

	srv := server.New(cfg, store, appLogger, time.Now)

	var wg sync.WaitGroup
	if *embedWorker {
		broker, err := newBroker(ctx, cfg, appLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create broker")
		}
		defer broker.Close()

		processor := worker.NewOutboxProcessor(store.Repos().Outbox, broker, outboxProcessorConfig(cfg), appLogger, srv.Metrics)
		cleaner := worker.NewOutboxCleanupWorker(store.Repos().Outbox, srv.Events, cfg.Outbox.Retention, time.Hour, appLogger)

		wg.Add(2)
		go func() {
			defer wg.Done()
			processor.Start(ctx)
		}()
		go func() {
			defer wg.Done()
			cleaner.Start(ctx)
		}()
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("database", cfg.Database.Driver).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	wg.Wait()

	log.Info().Msg("server exited properly")
}

func newBroker(ctx context.Context, cfg *config.Config, l *logger.Logger) (messaging.Broker, error) {
	if cfg.Redis.URL == "" {
		l.Warn("redis url not set, events will be logged instead of published")
		return messaging.NewLogBroker(l), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	broker, err := redis.NewRedisBroker(connectCtx, brokerConfig(cfg), &l.ZL)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func brokerConfig(cfg *config.Config) redis.Config {
	return redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
}

func outboxProcessorConfig(cfg *config.Config) worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       cfg.Redis.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		ClaimTimeout:  cfg.Outbox.ClaimTimeout,
	}
}
