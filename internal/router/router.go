package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/handler/health"
	"github.com/jwalitptl/servicebook/internal/handler/prometheus"
	"github.com/jwalitptl/servicebook/internal/middleware"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/validator"
)

// Handler is implemented by every resource handler. write is applied to the
// mutating routes only.
type Handler interface {
	RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
	config   *config.Config
}

// NewRouter wires the middleware chain. auth may be nil to leave every route
// open.
func NewRouter(
	cfg *config.Config,
	log *logger.Logger,
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	handlers ...Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	validator.Register()

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		metrics:  metricsH,
		handlers: handlers,
		config:   cfg,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(),
		metricsH.Middleware(),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			MaxAge:         cfg.CORS.MaxAge,
		}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.Server.RequestTimeout}),
		middleware.ErrorHandler(),
	)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() *Router {
	if r.config.Monitoring.PrometheusEnabled {
		r.engine.GET(r.config.Monitoring.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.health.RegisterRoutes(api)

	var write []gin.HandlerFunc
	if r.auth != nil {
		write = append(write, r.auth.Authenticate())
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(api, write...)
	}
	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
