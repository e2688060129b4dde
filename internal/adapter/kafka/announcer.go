// Package kafka publishes newly appended observations for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/labor-stats-etl/internal/config"
	"github.com/couchcryptid/labor-stats-etl/internal/domain"
)

// Announcer produces observation messages to a Kafka topic.
// It implements updater.Announcer.
type Announcer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAnnouncer creates a Kafka producer for the configured announce topic.
func NewAnnouncer(cfg *config.Config, logger *slog.Logger) *Announcer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Announcer{writer: w, logger: logger}
}

// Announce serializes and publishes the appended observations in a single
// WriteMessages call for efficiency.
func (a *Announcer) Announce(ctx context.Context, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := serializeToMessage(obs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return a.writer.WriteMessages(ctx, msgs...)
}

func (a *Announcer) Close() error {
	return a.writer.Close()
}

// serializeToMessage marshals an observation into a Kafka message keyed by
// the dataset's composite key, so topic compaction dedupes re-announcements.
func serializeToMessage(o domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "series", Value: []byte(o.Series)},
			{Key: "period", Value: []byte(o.Period.String())},
		},
	}, nil
}
