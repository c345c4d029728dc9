package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/config"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const selectionEventType = "tribe_selected"

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes selection events to a Kafka topic.
// It implements dashboard.SelectionPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured selection topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSelectionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one selection event. Events for the same
// village share a key so they land on the same partition.
func (w *Writer) Publish(ctx context.Context, event domain.SelectionEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish selection event: %w", err)
	}
	w.logger.Debug("selection event published", "tribe", event.Tribe, "id", event.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SelectionEvent into a Kafka message.
func serializeToMessage(event domain.SelectionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize selection event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Tribe),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(selectionEventType)},
			{Key: "selected_at", Value: []byte(event.SelectedAt.Format(time.RFC3339))},
		},
	}, nil
}
