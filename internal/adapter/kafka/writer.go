package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ca-cities-import/internal/config"
	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// Writer announces committed cities on a Kafka topic.
// It implements pipeline.Announcer.
type Writer struct {
	writer     *kafkago.Writer
	collection string
	logger     *slog.Logger
}

// NewWriter creates a Kafka producer for the configured announcement topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, collection: cfg.FirestoreCollection, logger: logger}
}

// Announce publishes one message per record in a single WriteMessages call.
// Messages are keyed by doc_id so every announcement for a city lands on the
// same partition.
func (w *Writer) Announce(ctx context.Context, runID string, records []domain.CityRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(domain.NewAnnouncement(records[i], w.collection, runID))
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("announce %d cities: %w", len(msgs), err)
	}
	w.logger.Debug("announced cities", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Announcement into a Kafka message.
func serializeToMessage(a domain.Announcement) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize announcement: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.DocID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(a.Status)},
			{Key: "run_id", Value: []byte(a.RunID)},
			{Key: "announced_at", Value: []byte(a.AnnouncedAt.Format(time.RFC3339))},
		},
	}, nil
}
