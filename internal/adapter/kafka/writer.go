package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/config"
	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes ticker selections to a Kafka topic.
// It implements dashboard.TickerPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured ticker topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTickerTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishTicker serializes one selection pass and writes it in a single
// WriteMessages call.
func (w *Writer) PublishTicker(ctx context.Context, items []domain.TickerItem, selectedAt time.Time) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(items))
	for i := range items {
		msg, err := serializeToMessage(items[i], selectedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish ticker items: %w", err)
	}
	w.logger.Debug("ticker published", "items", len(items), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TickerItem into a Kafka message keyed by its
// normalized label, so repeats of the same headline land on one partition.
func serializeToMessage(item domain.TickerItem, selectedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ticker item: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.NormalizeLabel(item.Label)),
		Value: data,
		Time:  selectedAt,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(item.Category)},
			{Key: "selected_at", Value: []byte(selectedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
