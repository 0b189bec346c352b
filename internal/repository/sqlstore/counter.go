package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sequence is a durable counter cell. The stored value is the next id to
// issue, so a fresh store hands out 1 first.
type sequence struct {
	q    sqlx.ExtContext
	name string
}

func newSequence(q sqlx.ExtContext, name string) *sequence {
	return &sequence{q: q, name: name}
}

// NextID returns the current counter value and persists value+1. Callers
// serialize through Storage.WithTx.
func (s *sequence) NextID(ctx context.Context) (uint64, error) {
	query := s.q.Rebind(`UPDATE id_counter SET value = value + 1 WHERE name = ? RETURNING value`)

	var next int64
	if err := sqlx.GetContext(ctx, s.q, &next, query, s.name); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", s.name, err)
	}
	return uint64(next - 1), nil
}
