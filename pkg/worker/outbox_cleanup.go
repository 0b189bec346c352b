package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/servicebook/internal/repository"
	"github.com/jwalitptl/servicebook/pkg/logger"
)

// Cleaner removes processed outbox events older than a retention window.
type Cleaner interface {
	CleanupProcessedEvents(ctx context.Context, outbox repository.OutboxRepository, retention time.Duration) (int64, error)
}

type OutboxCleanupWorker struct {
	repo      repository.OutboxRepository
	cleaner   Cleaner
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, cleaner Cleaner, retention, interval time.Duration, logger *logger.Logger) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:      repo,
		cleaner:   cleaner,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.cleaner.CleanupProcessedEvents(ctx, w.repo, w.retention)
			if err != nil {
				w.logger.Error(err, "Failed to clean up outbox")
				continue
			}
			if n > 0 {
				w.logger.Debug("Outbox cleaned up", "deleted", n)
			}
		}
	}
}
