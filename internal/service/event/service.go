package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository"
)

// Emitter writes domain events into the outbox. Call Emit with the outbox of
// the transaction that performed the mutation so both commit together.
type Emitter interface {
	Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error
}

type EventService struct {
	now func() time.Time
}

func NewEventService(now func() time.Time) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{now: now}
}

func (s *EventService) Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: s.now(),
	}

	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// CleanupProcessedEvents drops processed events older than retention.
func (s *EventService) CleanupProcessedEvents(ctx context.Context, outbox repository.OutboxRepository, retention time.Duration) (int64, error) {
	n, err := outbox.DeleteProcessedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup processed events: %w", err)
	}
	return n, nil
}
