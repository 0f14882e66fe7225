// Package kafka publishes finalized species aggregates to a sink topic so
// downstream dashboards can consume them without reading the file artifacts.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/config"
)

// Writer produces species aggregate messages to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSpecies serializes and publishes every species aggregate in a single
// WriteMessages call.
func (w *Writer) PublishSpecies(ctx context.Context, results *aggregate.Results) error {
	if len(results.Species) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results.Species))
	for i := range results.Species {
		msg, err := serializeToMessage(results.Species[i], results.GeneratedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one species aggregate into a Kafka message
// keyed by species identifier.
func serializeToMessage(sp aggregate.SpeciesReport, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(sp)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize species aggregate: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sp.SpeciesID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "species_id", Value: []byte(sp.SpeciesID)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
