package client

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
	store   repository.Storage
	events  event.Emitter
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewService(store repository.Storage, events event.Emitter, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
	}
}

func (s *Service) CreateClient(ctx context.Context, req *model.CreateClientRequest) (_ *model.Client, err error) {
	defer func(start time.Time) {
		s.metrics.ObserveOperation("create_client", errors.Outcome(err), start)
	}(time.Now())

	if req.Name == "" || req.ContactInfo == "" {
		return nil, errors.InvalidPayload("Ensure 'name' and 'contact_info' are provided.")
	}

	var client model.Client
	err = s.store.WithTx(ctx, func(r *repository.Repositories) error {
		id, err := r.IDs.NextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate client id: %w", err)
		}

		client = model.Client{
			ID:          id,
			Name:        req.Name,
			ContactInfo: req.ContactInfo,
		}
		if _, _, err := r.Clients.Insert(ctx, id, client); err != nil {
			return fmt.Errorf("failed to store client: %w", err)
		}
		return s.events.Emit(ctx, r.Outbox, model.EventClientCreated, client)
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Error(err, "failed to create client")
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("client created", "client_id", client.ID)
	return &client, nil
}

func (s *Service) GetClient(ctx context.Context, id uint64) (_ *model.Client, err error) {
	defer func(start time.Time) {
		s.metrics.ObserveOperation("get_client", errors.Outcome(err), start)
	}(time.Now())

	client, ok, err := s.store.Repos().Clients.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if !ok {
		return nil, errors.NotFound("Client not found")
	}
	return &client, nil
}
