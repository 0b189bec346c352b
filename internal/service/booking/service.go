package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository"
	"github.com/jwalitptl/servicebook/internal/service/event"
	"github.com/jwalitptl/servicebook/pkg/errors"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/metrics"
)

type Service struct {
	store     repository.Storage
	events    event.Emitter
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
	maxRating uint8
}

type Option func(*Service)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxRating rejects review ratings above limit. Zero disables the bound.
func WithMaxRating(limit uint8) Option {
	return func(s *Service) { s.maxRating = limit }
}

func NewService(store repository.Storage, events event.Emitter, m *metrics.Metrics, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReviewAddedEvent is the payload of review.added.
type ReviewAddedEvent struct {
	BookingID         uint64       `json:"booking_id"`
	ServiceProviderID uint64       `json:"service_provider_id"`
	Review            model.Review `json:"review"`
	AverageRating     float64      `json:"average_rating"`
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, errors.Outcome(err), start)
	if errors.Is(err, errors.ErrInternal) {
		logger.FromContext(ctx, s.log).Error(err, "operation failed", "operation", op)
	}
}

func (s *Service) CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (_ *model.Booking, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_booking", start, err) }(time.Now())

	if req.ServiceDate == 0 {
		return nil, errors.InvalidPayload("Invalid service date.")
	}

	var booking model.Booking
	err = s.store.WithTx(ctx, func(r *repository.Repositories) error {
		provider, ok, err := r.Providers.Get(ctx, req.ServiceProviderID)
		if err != nil {
			return fmt.Errorf("failed to get provider: %w", err)
		}
		if !ok {
			return errors.InvalidPayload("Invalid service_provider_id provided.")
		}
		if !provider.IsAvailable(req.ServiceDate) {
			return errors.Rule("Service provider is not available on the selected date.")
		}

		id, err := r.IDs.NextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate booking id: %w", err)
		}

		// The client id is stored as given and the slot is not reserved, so
		// the same provider and date may be booked more than once.
		booking = model.Booking{
			ID:                id,
			ServiceProviderID: req.ServiceProviderID,
			ClientID:          req.ClientID,
			ServiceDate:       req.ServiceDate,
			ServiceType:       req.ServiceType,
			Status:            model.BookingStatusPending,
			CreatedAt:         s.now(),
		}
		if _, _, err := r.Bookings.Insert(ctx, id, booking); err != nil {
			return fmt.Errorf("failed to store booking: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, model.EventBookingCreated, booking)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingsByStatus.WithLabelValues(booking.Status.String()).Inc()
	logger.FromContext(ctx, s.log).Info("booking created",
		"booking_id", booking.ID,
		"provider_id", booking.ServiceProviderID,
		"service_date", booking.ServiceDate,
	)
	return &booking, nil
}

// RescheduleBooking moves a pending booking to newDate, which must be one of
// the provider's available dates.
func (s *Service) RescheduleBooking(ctx context.Context, bookingID, newDate uint64) (_ model.Message, err error) {
	defer func(start time.Time) { s.observe(ctx, "reschedule_booking", start, err) }(time.Now())

	err = s.store.WithTx(ctx, func(r *repository.Repositories) error {
		booking, ok, err := r.Bookings.Get(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if !ok {
			return errors.NotFound("Booking not found")
		}
		if booking.Status != model.BookingStatusPending {
			return errors.Rule("Only pending bookings can be rescheduled.")
		}

		provider, ok, err := r.Providers.Get(ctx, booking.ServiceProviderID)
		if err != nil {
			return fmt.Errorf("failed to get provider: %w", err)
		}
		if !ok {
			return errors.NotFound("Service provider not found")
		}
		if !provider.IsAvailable(newDate) {
			return errors.Rule("Service provider is not available on the new date.")
		}

		booking.ServiceDate = newDate
		if _, _, err := r.Bookings.Insert(ctx, bookingID, booking); err != nil {
			return fmt.Errorf("failed to store booking: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, model.EventBookingRescheduled, booking)
	})
	if err != nil {
		return model.Message{}, err
	}
	return model.NewSuccess("Booking rescheduled."), nil
}

// ConfirmBooking marks the booking confirmed. A canceled booking can be
// confirmed again; only a repeated confirmation is refused.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID uint64) (_ model.Message, err error) {
	defer func(start time.Time) { s.observe(ctx, "confirm_booking", start, err) }(time.Now())

	err = s.transition(ctx, bookingID, model.BookingStatusConfirmed, "Booking is already confirmed.", model.EventBookingConfirmed)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewSuccess("Booking confirmed."), nil
}

func (s *Service) CancelBooking(ctx context.Context, bookingID uint64) (_ model.Message, err error) {
	defer func(start time.Time) { s.observe(ctx, "cancel_booking", start, err) }(time.Now())

	err = s.transition(ctx, bookingID, model.BookingStatusCanceled, "Booking is already canceled.", model.EventBookingCanceled)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewSuccess("Booking canceled."), nil
}

func (s *Service) transition(ctx context.Context, bookingID uint64, to model.BookingStatus, already, eventType string) error {
	err := s.store.WithTx(ctx, func(r *repository.Repositories) error {
		booking, ok, err := r.Bookings.Get(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if !ok {
			return errors.NotFound("Booking not found")
		}
		if booking.Status == to {
			return errors.Rule(already)
		}

		booking.Status = to
		if _, _, err := r.Bookings.Insert(ctx, bookingID, booking); err != nil {
			return fmt.Errorf("failed to store booking: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, eventType, booking)
	})
	if err != nil {
		return err
	}

	s.metrics.BookingsByStatus.WithLabelValues(to.String()).Inc()
	logger.FromContext(ctx, s.log).Info("booking status changed", "booking_id", bookingID, "status", to)
	return nil
}

// AddReview attaches a review from the booking's client to the booking's
// provider and recomputes the provider's average rating. Only completed
// bookings can be reviewed.
func (s *Service) AddReview(ctx context.Context, bookingID uint64, req *model.AddReviewRequest) (_ model.Message, err error) {
	defer func(start time.Time) { s.observe(ctx, "add_review", start, err) }(time.Now())

	err = s.store.WithTx(ctx, func(r *repository.Repositories) error {
		booking, ok, err := r.Bookings.Get(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}
		if !ok {
			return errors.NotFound("Booking not found.")
		}
		if s.maxRating > 0 && req.Rating > s.maxRating {
			return errors.InvalidPayload(fmt.Sprintf("Rating must not exceed %d.", s.maxRating))
		}
		if booking.Status != model.BookingStatusCompleted {
			return errors.Rule("Only completed bookings can be reviewed.")
		}

		provider, ok, err := r.Providers.Get(ctx, booking.ServiceProviderID)
		if err != nil {
			return fmt.Errorf("failed to get provider: %w", err)
		}
		if !ok {
			// Nothing to attach the review to; the call still succeeds.
			logger.FromContext(ctx, s.log).Warn("review dropped, provider missing",
				"booking_id", bookingID,
				"provider_id", booking.ServiceProviderID,
			)
			return nil
		}

		review := model.Review{
			ClientID:  booking.ClientID,
			Rating:    req.Rating,
			Comment:   req.Comment,
			CreatedAt: s.now(),
		}
		provider.AddReview(review)
		if _, _, err := r.Providers.Insert(ctx, provider.ID, provider); err != nil {
			return fmt.Errorf("failed to store provider: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, model.EventReviewAdded, ReviewAddedEvent{
			BookingID:         bookingID,
			ServiceProviderID: provider.ID,
			Review:            review,
			AverageRating:     provider.AverageRating,
		})
	})
	if err != nil {
		return model.Message{}, err
	}
	return model.NewSuccess("Review added."), nil
}

func (s *Service) GetBooking(ctx context.Context, id uint64) (_ *model.Booking, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_booking", start, err) }(time.Now())

	booking, ok, err := s.store.Repos().Bookings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if !ok {
		return nil, errors.NotFound("Booking not found")
	}
	return &booking, nil
}

// GetClientBookings lists the client's bookings in id order.
func (s *Service) GetClientBookings(ctx context.Context, clientID uint64) (_ []model.Booking, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_client_bookings", start, err) }(time.Now())

	bookings, err := s.filter(ctx, func(b model.Booking) bool { return b.ClientID == clientID })
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, errors.NotFound("No bookings found for this client.")
	}
	return bookings, nil
}

// GetServiceProviderHistory lists the provider's bookings in id order.
func (s *Service) GetServiceProviderHistory(ctx context.Context, providerID uint64) (_ []model.Booking, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_service_provider_history", start, err) }(time.Now())

	bookings, err := s.filter(ctx, func(b model.Booking) bool { return b.ServiceProviderID == providerID })
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, errors.NotFound("No bookings found for this service provider.")
	}
	return bookings, nil
}

func (s *Service) filter(ctx context.Context, keep func(model.Booking) bool) ([]model.Booking, error) {
	entries, err := s.store.Repos().Bookings.Iterate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	var bookings []model.Booking
	for _, b := range entries {
		if keep(b) {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}
