package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/servicebook/pkg/logger"
)

// LogBroker writes published messages to the log. It stands in for a real
// broker when none is configured.
type LogBroker struct {
	logger *logger.Logger
}

func NewLogBroker(logger *logger.Logger) *LogBroker {
	return &LogBroker{logger: logger}
}

func (b *LogBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	b.logger.ZL.Info().
		Str("channel", channel).
		RawJSON("message", payload).
		Msg("event published")
	return nil
}

func (b *LogBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, fmt.Errorf("log broker does not support subscriptions")
}

func (b *LogBroker) Close() error {
	return nil
}
