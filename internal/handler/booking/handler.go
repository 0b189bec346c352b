package booking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/pkg/httputil"
	"github.com/jwalitptl/servicebook/pkg/validator"
)

type BookingServicer interface {
	CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	RescheduleBooking(ctx context.Context, bookingID, newDate uint64) (model.Message, error)
	ConfirmBooking(ctx context.Context, bookingID uint64) (model.Message, error)
	CancelBooking(ctx context.Context, bookingID uint64) (model.Message, error)
	AddReview(ctx context.Context, bookingID uint64, req *model.AddReviewRequest) (model.Message, error)
}

type Handler struct {
	service BookingServicer
}

func NewHandler(service BookingServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, write ...gin.HandlerFunc) {
	bookings := r.Group("/bookings")
	guarded := bookings.Group("", write...)
	{
		guarded.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		guarded.PUT("/:id/reschedule", h.RescheduleBooking)
		guarded.POST("/:id/confirm", h.ConfirmBooking)
		guarded.POST("/:id/cancel", h.CancelBooking)
		guarded.POST("/:id/reviews", h.AddReview)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, booking)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	booking, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, booking)
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req model.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	h.respond(c, func(ctx context.Context) (model.Message, error) {
		return h.service.RescheduleBooking(ctx, id, req.NewDate)
	})
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, func(ctx context.Context) (model.Message, error) {
		return h.service.ConfirmBooking(ctx, id)
	})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, func(ctx context.Context) (model.Message, error) {
		return h.service.CancelBooking(ctx, id)
	})
}

func (h *Handler) AddReview(c *gin.Context) {
	id, err := httputil.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req model.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validator.BindError(err))
		return
	}

	h.respond(c, func(ctx context.Context) (model.Message, error) {
		return h.service.AddReview(ctx, id, &req)
	})
}

func (h *Handler) respond(c *gin.Context, op func(ctx context.Context) (model.Message, error)) {
	msg, err := op(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	httputil.RespondWithMessage(c, msg)
}
