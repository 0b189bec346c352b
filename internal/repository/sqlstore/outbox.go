package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/servicebook/internal/model"
)

type outboxRepository struct {
	q   sqlx.ExtContext
	ids *sequence
}

func newOutboxRepository(q sqlx.ExtContext) *outboxRepository {
	return &outboxRepository{q: q, ids: newSequence(q, sequenceOutbox)}
}

type outboxRow struct {
	ID           int64          `db:"id"`
	EventType    string         `db:"event_type"`
	Payload      []byte         `db:"payload"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	RetryCount   int            `db:"retry_count"`
	CreatedAt    int64          `db:"created_at"`
	ProcessedAt  sql.NullInt64  `db:"processed_at"`
}

func (r outboxRow) toModel() *model.OutboxEvent {
	event := &model.OutboxEvent{
		ID:         uint64(r.ID),
		EventType:  r.EventType,
		Payload:    r.Payload,
		Status:     model.OutboxStatus(r.Status),
		RetryCount: r.RetryCount,
		CreatedAt:  time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.ErrorMessage.Valid {
		msg := r.ErrorMessage.String
		event.ErrorMessage = &msg
	}
	if r.ProcessedAt.Valid {
		at := time.Unix(0, r.ProcessedAt.Int64).UTC()
		event.ProcessedAt = &at
	}
	return event
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	id, err := r.ids.NextID(ctx)
	if err != nil {
		return err
	}
	event.ID = id
	event.Status = model.OutboxStatusPending
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := r.q.Rebind(`
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`)
	_, err = r.q.ExecContext(ctx, query,
		int64(event.ID),
		event.EventType,
		string(event.Payload),
		string(event.Status),
		event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := r.q.Rebind(`
		SELECT id, event_type, payload, status, error_message, retry_count, created_at, processed_at
		FROM outbox_events
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`)

	var rows []outboxRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, string(model.OutboxStatusPending), limit); err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}

	events := make([]*model.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toModel())
	}
	return events, nil
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]*model.OutboxEvent, error) {
	// The outer status test is re-checked against rows another claimer
	// updated first, so a row is handed out once.
	query := r.q.Rebind(`
		UPDATE outbox_events
		SET status = ?, claimed_at = ?
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = ? OR (status = ? AND claimed_at < ?)
			ORDER BY id ASC
			LIMIT ?
		)
		AND (status = ? OR (status = ? AND claimed_at < ?))
		RETURNING id, event_type, payload, status, error_message, retry_count, created_at, processed_at
	`)

	var (
		pending    = string(model.OutboxStatusPending)
		processing = string(model.OutboxStatusProcessing)
		stale      = now.Add(-lease).UnixNano()
		rows       []outboxRow
	)
	err := sqlx.SelectContext(ctx, r.q, &rows, query,
		processing, now.UnixNano(),
		pending, processing, stale,
		limit,
		pending, processing, stale,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}

	events := make([]*model.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toModel())
	}
	slices.SortFunc(events, func(a, b *model.OutboxEvent) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uint64, at time.Time) error {
	query := r.q.Rebind(`
		UPDATE outbox_events
		SET status = ?, error_message = NULL, claimed_at = NULL, processed_at = ?
		WHERE id = ?
	`)
	if _, err := r.q.ExecContext(ctx, query, string(model.OutboxStatusProcessed), at.UnixNano(), int64(id)); err != nil {
		return fmt.Errorf("failed to mark event %d processed: %w", id, err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint64, errorMessage string, final bool) error {
	status := model.OutboxStatusPending
	if final {
		status = model.OutboxStatusFailed
	}

	query := r.q.Rebind(`
		UPDATE outbox_events
		SET status = ?, error_message = ?, claimed_at = NULL, retry_count = retry_count + 1
		WHERE id = ?
	`)
	if _, err := r.q.ExecContext(ctx, query, string(status), errorMessage, int64(id)); err != nil {
		return fmt.Errorf("failed to mark event %d failed: %w", id, err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := r.q.Rebind(`
		DELETE FROM outbox_events
		WHERE status = ?
		AND processed_at < ?
	`)
	result, err := r.q.ExecContext(ctx, query, string(model.OutboxStatusProcessed), before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
