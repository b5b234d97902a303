package messaging

import (
	"context"
	"log/slog"
)

// LogProducer only logs intents. It backs notifications.backend "none".
type LogProducer struct {
	logger *slog.Logger
}

func NewLogProducer(logger *slog.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) SendMessage(ctx context.Context, key string, value interface{}) error {
	p.logger.InfoContext(ctx, "notification dispatch disabled, dropping message", "key", key)
	return nil
}

func (p *LogProducer) Close() error {
	return nil
}
