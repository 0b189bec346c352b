package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/jmoiron/sqlx"
)

// Kind partitions the entities table, one value per entity kind.
type Kind int

const (
	KindProviders Kind = 1
	KindBookings  Kind = 2
	KindClients   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindProviders:
		return "providers"
	case KindBookings:
		return "bookings"
	case KindClients:
		return "clients"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// entityStore keeps E as a JSON payload under (kind, id).
type entityStore[E any] struct {
	q    sqlx.ExtContext
	kind Kind
}

func newEntityStore[E any](q sqlx.ExtContext, kind Kind) *entityStore[E] {
	return &entityStore[E]{q: q, kind: kind}
}

func (s *entityStore[E]) Insert(ctx context.Context, id uint64, entity E) (E, bool, error) {
	prev, replaced, err := s.Get(ctx, id)
	if err != nil {
		return prev, false, err
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return prev, false, fmt.Errorf("failed to encode %s %d: %w", s.kind, id, err)
	}

	query := s.q.Rebind(`
		INSERT INTO entities (kind, id, payload) VALUES (?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET payload = excluded.payload
	`)
	if _, err := s.q.ExecContext(ctx, query, int(s.kind), int64(id), string(payload)); err != nil {
		return prev, false, fmt.Errorf("failed to store %s %d: %w", s.kind, id, err)
	}
	return prev, replaced, nil
}

func (s *entityStore[E]) Get(ctx context.Context, id uint64) (E, bool, error) {
	var (
		entity  E
		payload []byte
	)

	query := s.q.Rebind(`SELECT payload FROM entities WHERE kind = ? AND id = ?`)
	err := sqlx.GetContext(ctx, s.q, &payload, query, int(s.kind), int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity, false, nil
	}
	if err != nil {
		return entity, false, fmt.Errorf("failed to get %s %d: %w", s.kind, id, err)
	}

	if err := json.Unmarshal(payload, &entity); err != nil {
		return entity, false, fmt.Errorf("failed to decode %s %d: %w", s.kind, id, err)
	}
	return entity, true, nil
}

type entityRow struct {
	ID      int64  `db:"id"`
	Payload []byte `db:"payload"`
}

// Iterate reads the whole partition before yielding, so callers never hold a
// cursor open and each call sees a fresh snapshot.
func (s *entityStore[E]) Iterate(ctx context.Context) (iter.Seq2[uint64, E], error) {
	var rows []entityRow
	query := s.q.Rebind(`SELECT id, payload FROM entities WHERE kind = ? ORDER BY id ASC`)
	if err := sqlx.SelectContext(ctx, s.q, &rows, query, int(s.kind)); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.kind, err)
	}

	entities := make([]E, len(rows))
	for i, row := range rows {
		if err := json.Unmarshal(row.Payload, &entities[i]); err != nil {
			return nil, fmt.Errorf("failed to decode %s %d: %w", s.kind, row.ID, err)
		}
	}

	return func(yield func(uint64, E) bool) {
		for i, row := range rows {
			if !yield(uint64(row.ID), entities[i]) {
				return
			}
		}
	}, nil
}
