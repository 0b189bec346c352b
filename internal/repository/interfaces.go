package repository

import (
	"context"
	"iter"
	"time"

	"github.com/jwalitptl/servicebook/internal/model"
)

// All repository interfaces in one file
type (
	// IDAllocator issues strictly increasing identifiers that are never reused.
	IDAllocator interface {
		NextID(ctx context.Context) (uint64, error)
	}

	// EntityStore is a durable ordered map from id to one entity kind.
	EntityStore[E any] interface {
		// Insert upserts entity under id and returns the value it replaced, if any.
		Insert(ctx context.Context, id uint64, entity E) (prev E, replaced bool, err error)
		Get(ctx context.Context, id uint64) (E, bool, error)
		// Iterate snapshots the store and yields its entries in key order.
		Iterate(ctx context.Context) (iter.Seq2[uint64, E], error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		// ClaimPending moves up to limit publishable events to PROCESSING and
		// returns them. Events claimed more than lease ago count as publishable
		// again. Concurrent callers never receive the same event.
		ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uint64, at time.Time) error
		// MarkFailed records a publish failure and bumps the retry count. A final
		// failure moves the event out of the pending set.
		MarkFailed(ctx context.Context, id uint64, errorMessage string, final bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Storage owns the persistent state and hands out repositories bound either
	// to the shared connection or to a transaction.
	Storage interface {
		Repos() *Repositories
		// WithTx runs fn under the process-wide write lock inside one database
		// transaction. fn must only use the repositories it is given.
		WithTx(ctx context.Context, fn func(r *Repositories) error) error
	}
)

// Repositories bundles the allocator, the three entity stores and the outbox
// so a single unit of work can span all of them.
type Repositories struct {
	IDs       IDAllocator
	Providers EntityStore[model.ServiceProvider]
	Bookings  EntityStore[model.Booking]
	Clients   EntityStore[model.Client]
	Outbox    OutboxRepository
}
