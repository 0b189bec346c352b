package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sequence names in id_counter.
const (
	sequenceEntities = "entities"
	sequenceOutbox   = "outbox"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS id_counter (
		name  VARCHAR(32) PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		kind    INTEGER NOT NULL,
		id      BIGINT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id            BIGINT PRIMARY KEY,
		event_type    VARCHAR(64) NOT NULL,
		payload       TEXT NOT NULL,
		status        VARCHAR(16) NOT NULL,
		error_message TEXT,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		created_at    BIGINT NOT NULL,
		claimed_at    BIGINT,
		processed_at  BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_status ON outbox_events (status, id)`,
}

// Migrate creates the tables and seeds the sequences. Seeding never resets an
// existing counter.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	seed := db.Rebind(`INSERT INTO id_counter (name, value) VALUES (?, 1) ON CONFLICT (name) DO NOTHING`)
	for _, name := range []string{sequenceEntities, sequenceOutbox} {
		if _, err := db.ExecContext(ctx, seed, name); err != nil {
			return fmt.Errorf("failed to seed sequence %s: %w", name, err)
		}
	}
	return nil
}
