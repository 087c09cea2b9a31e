// Package kafka streams opportunity records to a Kafka topic so downstream
// consumers (dashboards, research jobs) can follow the engine in real time.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const writeTimeout = 5 * time.Second

var _ domain.OpportunityLog = (*Publisher)(nil)

// Publisher writes opportunity records as JSON messages keyed by
// match/outcome so a partition preserves per-outcome ordering.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafkago.RequireOne,
		},
		logger: logger.With(slog.String("component", "kafka_publisher")),
	}
}

func (p *Publisher) Append(rec domain.OpportunityRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kafka: marshal opportunity: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	key := fmt.Sprintf("%s|%s", rec.MatchKey, rec.OutcomeKey)
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka: publish opportunity: %w", err)
	}
	p.logger.Debug("opportunity published",
		slog.String("key", key),
		slog.String("trigger", string(rec.TriggerType)),
	)
	return nil
}

func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: close writer: %w", err)
	}
	return nil
}
