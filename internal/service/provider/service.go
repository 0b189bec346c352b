package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository"
	"github.com/jwalitptl/servicebook/internal/service/event"
	"github.com/jwalitptl/servicebook/pkg/errors"
	"github.com/jwalitptl/servicebook/pkg/logger"
	"github.com/jwalitptl/servicebook/pkg/metrics"
)

type Service struct {
	store   repository.Storage
	events  event.Emitter
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store repository.Storage, events event.Emitter, m *metrics.Metrics, log *logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
		now:     now,
	}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, errors.Outcome(err), start)
	if errors.Is(err, errors.ErrInternal) {
		logger.FromContext(ctx, s.log).Error(err, "operation failed", "operation", op)
	}
}

// CreateServiceProvider registers a provider with no reviews and a zero rating.
func (s *Service) CreateServiceProvider(ctx context.Context, req *model.CreateServiceProviderRequest) (_ *model.ServiceProvider, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_service_provider", start, err) }(time.Now())

	if req.Name == "" || req.ServiceType == "" || req.ContactInfo == "" {
		return nil, errors.InvalidPayload("Ensure 'name', 'service_type', and 'contact_info' are provided.")
	}

	var provider model.ServiceProvider
	err = s.store.WithTx(ctx, func(r *repository.Repositories) error {
		id, err := r.IDs.NextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate provider id: %w", err)
		}

		provider = model.ServiceProvider{
			ID:            id,
			Name:          req.Name,
			ServiceType:   req.ServiceType,
			ContactInfo:   req.ContactInfo,
			CreatedAt:     s.now(),
			AverageRating: 0,
			Reviews:       []model.Review{},
			Availability:  req.Availability,
		}
		if provider.Availability == nil {
			provider.Availability = []uint64{}
		}

		if _, _, err := r.Providers.Insert(ctx, id, provider); err != nil {
			return fmt.Errorf("failed to store provider: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, model.EventProviderCreated, provider)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("service provider created", "provider_id", provider.ID)
	return &provider, nil
}

// SearchServiceProviders returns, in id order, every provider whose name,
// service type or contact info contains query and, when filter is set, whose
// service type contains filter.
func (s *Service) SearchServiceProviders(ctx context.Context, query string, filter *string) (_ []model.ServiceProvider, err error) {
	defer func(start time.Time) { s.observe(ctx, "search_service_providers", start, err) }(time.Now())

	entries, err := s.store.Repos().Providers.Iterate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	var providers []model.ServiceProvider
	for _, p := range entries {
		if !matches(p, query) {
			continue
		}
		if filter != nil && !strings.Contains(p.ServiceType, *filter) {
			continue
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, errors.NotFound("No service providers found")
	}
	return providers, nil
}

func matches(p model.ServiceProvider, query string) bool {
	return strings.Contains(p.Name, query) ||
		strings.Contains(p.ServiceType, query) ||
		strings.Contains(p.ContactInfo, query)
}

func (s *Service) GetServiceProvider(ctx context.Context, id uint64) (_ *model.ServiceProvider, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_service_provider", start, err) }(time.Now())

	provider, ok, err := s.store.Repos().Providers.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	if !ok {
		return nil, errors.NotFound("Service provider not found")
	}
	return &provider, nil
}
