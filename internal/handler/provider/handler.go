package provider

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/pkg/httputil"
	"github.com/jwalitptl/servicebook/pkg/validator"
)

type ProviderServicer interface {
	CreateServiceProvider(ctx context.Context, req *model.CreateServiceProviderRequest) (*model.ServiceProvider, error)
	SearchServiceProviders(ctx context.Context, query string, filter *string) ([]model.ServiceProvider, error)
	GetServiceProvider(ctx context.Context, id uint64) (*model.ServiceProvider, error)
}

type HistoryServicer interface {
	GetServiceProviderHistory(ctx context.Context, providerID uint64) ([]model.Booking, error)
}

type Handler struct {
	service  ProviderServicer
	bookings HistoryServicer
}

func NewHandler(service ProviderServicer, bookings HistoryServicer) *Handler {
	return &Handler{service: service, bookings: bookings}
}

// RegisterRoutes mounts the provider routes; write guards the mutating ones.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	providers := r.Group("/providers")
	guarded := providers.Group("", write...)
	{
		guarded.POST("", h.CreateServiceProvider)
		providers.GET("/search", h.SearchServiceProviders)
		providers.GET("/:id", h.GetServiceProvider)
		providers.GET("/:id/bookings", h.GetServiceProviderHistory)
	}
}

func (h *Handler) CreateServiceProvider(c *gin.Context) {
	var req model.CreateServiceProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	provider, err := h.service.CreateServiceProvider(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, provider)
}

func (h *Handler) SearchServiceProviders(c *gin.Context) {
	var req model.SearchServiceProvidersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	providers, err := h.service.SearchServiceProviders(c.Request.Context(), req.Query, req.Filter)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, providers)
}

func (h *Handler) GetServiceProvider(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	provider, err := h.service.GetServiceProvider(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, provider)
}

func (h *Handler) GetServiceProviderHistory(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	bookings, err := h.bookings.GetServiceProviderHistory(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}
