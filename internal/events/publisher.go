package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/order"
)

const publishTimeout = 3 * time.Second

type PublisherOptions struct {
	Producer string
}

// Publisher emits enveloped domain events to the topic exchange. Sends go
// through a circuit breaker so a dead broker fails fast.
type Publisher struct {
	ch       channel
	seq      SequenceRepository
	cb       *gobreaker.CircuitBreaker
	producer string
	logger   *zap.Logger
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq SequenceRepository, opts PublisherOptions, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, opts, logger), nil
}

func newPublisher(ch channel, seq SequenceRepository, opts PublisherOptions, logger *zap.Logger) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}

	settings := gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Publisher{
		ch:       ch,
		seq:      seq,
		cb:       gobreaker.NewCircuitBreaker(settings),
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) error {
	return publish(ctx, p, OrderCreatedEventName, OrderCreatedRoutingKey, o.ID, orderCreatedPayload(o))
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, o *order.Order, from order.Status) error {
	return publish(ctx, p, OrderStatusChangedEventName, OrderStatusChangedRoutingKey, o.ID, OrderStatusChangedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		From:        from,
		To:          o.Status,
		UpdatedAt:   o.UpdatedAt,
		CompletedAt: o.CompletedAt,
	})
}

func (p *Publisher) PromoRedeemed(ctx context.Context, code, orderID string) error {
	return publish(ctx, p, PromoRedeemedEventName, PromoRedeemedRoutingKey, "promo:"+code, PromoRedeemedPayload{
		Code:       code,
		OrderID:    orderID,
		RedeemedAt: p.now().UTC(),
	})
}

func publish[T any](ctx context.Context, p *Publisher, name, routingKey, partitionKey string, payload T) error {
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := EventEnvelope[T]{
		EventName:     name,
		EventVersion:  eventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: logging.CorrelationID(ctx),
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		Sequence:      &seq,
		OccurredAt:    p.now().UTC(),
		Payload:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Timestamp:     env.OccurredAt,
		Type:          name,
		Body:          body,
	}
	if err := p.send(ctx, routingKey, msg); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}

	logging.Debug(ctx, p.logger, "event published",
		zap.String("event", name),
		zap.String("partition_key", partitionKey),
		zap.Int64("sequence", seq),
	)
	return nil
}

func (p *Publisher) send(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	_, err := p.cb.Execute(func() (any, error) {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return nil, p.ch.PublishWithContext(pubCtx, EventsExchange, routingKey, false, false, msg)
	})
	return err
}

// Noop satisfies the publisher interfaces when no broker is configured.
type Noop struct {
	Logger *zap.Logger
}

func (n Noop) OrderCreated(ctx context.Context, o *order.Order) error {
	logging.Debug(ctx, n.Logger, "event dropped", zap.String("event", OrderCreatedEventName), zap.String("order_id", o.ID))
	return nil
}

func (n Noop) OrderStatusChanged(ctx context.Context, o *order.Order, _ order.Status) error {
	logging.Debug(ctx, n.Logger, "event dropped", zap.String("event", OrderStatusChangedEventName), zap.String("order_id", o.ID))
	return nil
}

func (n Noop) PromoRedeemed(ctx context.Context, code, _ string) error {
	logging.Debug(ctx, n.Logger, "event dropped", zap.String("event", PromoRedeemedEventName), zap.String("code", code))
	return nil
}
