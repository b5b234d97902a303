package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"school-service/common/metrics"

	"github.com/IBM/sarama"
)

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewKafkaProducer(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = "school-service"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 250 * time.Millisecond
	config.Producer.Return.Successes = true
	// Intents for one phone must stay ordered, so the key picks the partition.
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewKafkaProducerWith(producer, topic, logger, m), nil
}

// NewKafkaProducerWith wraps an existing sync producer.
func NewKafkaProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  m,
	}
}

// SendMessage keys the record so that every intent for one phone number lands
// on the same partition.
func (p *KafkaProducer) SendMessage(ctx context.Context, key string, value interface{}) error {
	start := time.Now()

	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, metrics.Publish{
		Backend:      metrics.BackendKafka,
		Destination:  p.topic,
		PayloadBytes: len(valueBytes),
		Duration:     time.Since(start),
		Err:          err,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to kafka", "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to kafka", "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
