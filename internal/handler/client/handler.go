package client

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/pkg/httputil"
	"github.com/jwalitptl/servicebook/pkg/validator"
)

type ClientServicer interface {
	CreateClient(ctx context.Context, req *model.CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id uint64) (*model.Client, error)
}

type BookingLister interface {
	GetClientBookings(ctx context.Context, clientID uint64) ([]model.Booking, error)
}

type Handler struct {
	service  ClientServicer
	bookings BookingLister
}

func NewHandler(service ClientServicer, bookings BookingLister) *Handler {
	return &Handler{service: service, bookings: bookings}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	clients := r.Group("/clients")
	guarded := clients.Group("", write...)
	{
		guarded.POST("", h.CreateClient)
		clients.GET("/:id", h.GetClient)
		clients.GET("/:id/bookings", h.GetClientBookings)
	}
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req model.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	client, err := h.service.CreateClient(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, client)
}

func (h *Handler) GetClient(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	client, err := h.service.GetClient(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, client)
}

func (h *Handler) GetClientBookings(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	bookings, err := h.bookings.GetClientBookings(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}
