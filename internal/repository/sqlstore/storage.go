package sqlstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository"
)

// Storage is the single owner of the persisted state: the id sequence, the
// three entity partitions and the outbox.
type Storage struct {
	db    *sqlx.DB
	mu    sync.Mutex
	repos *repository.Repositories
}

var _ repository.Storage = (*Storage)(nil)

func New(db *sqlx.DB) *Storage {
	return &Storage{db: db, repos: bind(db)}
}

func bind(q sqlx.ExtContext) *repository.Repositories {
	return &repository.Repositories{
		IDs:       newSequence(q, sequenceEntities),
		Providers: newEntityStore[model.ServiceProvider](q, KindProviders),
		Bookings:  newEntityStore[model.Booking](q, KindBookings),
		Clients:   newEntityStore[model.Client](q, KindClients),
		Outbox:    newOutboxRepository(q),
	}
}

// Repos returns repositories bound to the shared connection pool. Use them for
// reads and for outbox bookkeeping, never from inside WithTx.
func (s *Storage) Repos() *repository.Repositories {
	return s.repos
}

// WithTx executes fn within a transaction while holding the write lock, so id
// allocation and every read-check-write sequence are atomic and serialized.
func (s *Storage) WithTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(bind(tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
