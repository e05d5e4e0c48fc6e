package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contracts"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher emits enveloped storefront events to the shared topic exchange.
type Publisher struct {
	ch     amqpPublisher
	logger *zap.Logger
}

func NewPublisher(conn *amqp.Connection, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return &Publisher{ch: ch, logger: logger.Named("events")}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishOrderPlaced sends the order's OrderPlaced event with the sequence
// reserved at placement. The event id is derived from the order id, so a replay
// carries the same id and consumers can drop the duplicate.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	if o.EventSequence < 1 {
		return fmt.Errorf("order %s has no event sequence", o.Number)
	}

	env := contracts.BuildOrderPlacedEvent(o, contracts.EnvelopeOptions{
		EventID:       OrderPlacedEventID(o.ID),
		PartitionKey:  o.UserID,
		Sequence:      o.EventSequence,
		CorrelationID: middleware.GetCorrelationID(ctx),
		CausationID:   o.ID,
	})

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}

	if err := p.publishJSON(ctx, OrderPlacedRoutingKey, env.EventID, body); err != nil {
		return fmt.Errorf("publish OrderPlaced: %w", err)
	}

	p.logger.Info("published",
		zap.String("event", env.EventName),
		zap.String("event_id", env.EventID),
		zap.String("partition_key", env.PartitionKey),
		zap.Int64("sequence", env.Sequence),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

var orderPlacedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:storefront:events:OrderPlaced"))

func OrderPlacedEventID(orderID string) string {
	return uuid.NewSHA1(orderPlacedNamespace, []byte(orderID)).String()
}
