package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"school-service/common/metrics"

	"github.com/nats-io/nats.go"
)

// NATSProducer publishes JSON payloads to one subject. Publish does not wait
// for a subscriber; delivery is the consumer's concern.
type NATSProducer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNATSProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*NATSProducer, error) {
	nc, err := nats.Connect(url,
		nats.Name("school-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &NATSProducer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

func (p *NATSProducer) SendMessage(ctx context.Context, key string, value interface{}) error {
	start := time.Now()

	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set("Message-Key", key)
	msg.Data = valueBytes

	err = p.conn.PublishMsg(msg)
	p.metrics.Messaging.RecordPublish(ctx, metrics.Publish{
		Backend:      metrics.BackendNATS,
		Destination:  p.subject,
		PayloadBytes: len(valueBytes),
		Duration:     time.Since(start),
		Err:          err,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to NATS", "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to NATS", "subject", p.subject)
	return nil
}

// Close flushes buffered messages before closing the connection.
func (p *NATSProducer) Close() error {
	return p.conn.Drain()
}
