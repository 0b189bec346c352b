package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/servicebook/internal/config"
	bookingHandler "github.com/jwalitptl/servicebook/internal/handler/booking"
	clientHandler "github.com/jwalitptl/servicebook/internal/handler/client"
	"github.com/jwalitptl/servicebook/internal/handler/health"
	promHandler "github.com/jwalitptl/servicebook/internal/handler/prometheus"
	providerHandler "github.com/jwalitptl/servicebook/internal/handler/provider"
	"github.com/jwalitptl/servicebook/internal/middleware"
	"github.com/jwalitptl/servicebook/internal/repository/sqlstore"
	"github.com/jwalitptl/servicebook/internal/router"
	bookingService "github.com/jwalitptl/servicebook/internal/service/booking"
	clientService "github.com/jwalitptl/servicebook/internal/service/client"
	eventService "github.com/jwalitptl/servicebook/internal/service/event"
	providerService "github.com/jwalitptl/servicebook/internal/service/provider"
	"github.com/jwalitptl/servicebook/pkg/auth"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/metrics"
)

const metricsNamespace = "servicebook"

// Server holds the assembled services and HTTP router for one storage.
type Server struct {
	Router   *router.Router
	Events   *eventService.EventService
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	Providers *providerService.Service
	Clients   *clientService.Service
	Bookings  *bookingService.Service
}

// New builds the services on top of store and mounts them on a router.
func New(cfg *config.Config, store *sqlstore.Storage, log *logger.Logger, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metricsNamespace, registry)

	events := eventService.NewEventService(now)
	providerSvc := providerService.NewService(store, events, m, log, now)
	clientSvc := clientService.NewService(store, events, m, log)
	bookingSvc := bookingService.NewService(store, events, m, log,
		bookingService.WithClock(now),
		bookingService.WithMaxRating(cfg.Reviews.MaxRating),
	)

	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Secret != "" {
		authMiddleware = middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer))
	}

	r := router.NewRouter(
		cfg,
		log,
		authMiddleware,
		health.NewHandler(store),
		promHandler.New(registry, m),
		providerHandler.NewHandler(providerSvc, bookingSvc),
		clientHandler.NewHandler(clientSvc, bookingSvc),
		bookingHandler.NewHandler(bookingSvc),
	).Setup()

	return &Server{
		Router:    r,
		Events:    events,
		Metrics:   m,
		Registry:  registry,
		Providers: providerSvc,
		Clients:   clientSvc,
		Bookings:  bookingSvc,
	}
}
