package tradepublisher

import (
	"context"

	tradepublisherv1 "github.com/Karlli16/OrderMatch/internal/domain/trade-publisher/v1"
	"github.com/Karlli16/OrderMatch/pkg/config"
	"github.com/Karlli16/OrderMatch/pkg/errors"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher represents a Kafka publisher for executed trade events.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      *logger.Logger
}

// NewPublisher creates a new Kafka publisher for trade events.
func NewPublisher(cfg config.TradePublisherConfig, log *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishTrade publishes a trade event to the trade topic, keyed by symbol
// so all trades for one symbol land on one partition in order.
func (p *Publisher) PublishTrade(ctx context.Context, event *tradepublisherv1.TradeEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: tradepublisherv1.ToBytes(event),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "tradeID", Value: event.TradeID},
			logger.Field{Key: "symbol", Value: event.Symbol},
		)
		return errors.NewTracer(string(errors.TradePublishError)).Wrap(err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
