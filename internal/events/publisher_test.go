package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/order"
)

type sentMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type memSequences struct {
	next map[string]int64
	err  error
}

func (m *memSequences) NextSequence(_ context.Context, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.next[key]++
	return m.next[key], nil
}

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestPublisher(ch *fakeChannel, seq *memSequences) *Publisher {
	p := newPublisher(ch, seq, PublisherOptions{}, zap.NewNop())
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPublishOrderCreated(t *testing.T) {
	ch := &fakeChannel{}
	seq := &memSequences{next: map[string]int64{}}
	p := newTestPublisher(ch, seq)

	code := "SAVE10"
	o := &order.Order{
		ID:            "o1",
		UserID:        "u1",
		Tests:         []cart.Item{{TestID: "cbc", TestName: "CBC", Price: 50, Kind: cart.KindTest}},
		Subtotal:      50,
		Discount:      5,
		TotalAmount:   45,
		PromoCode:     &code,
		PaymentMethod: order.PaymentCard,
		Status:        order.StatusPending,
		CreatedAt:     fixedNow,
	}

	ctx := logging.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.OrderCreated(ctx, o))
	require.NoError(t, p.OrderCreated(ctx, o))

	require.Len(t, ch.sent, 2)
	sent := ch.sent[1]
	assert.Equal(t, EventsExchange, sent.exchange)
	assert.Equal(t, OrderCreatedRoutingKey, sent.key)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "corr-1", sent.msg.CorrelationId)

	var env EventEnvelope[OrderCreatedPayload]
	require.NoError(t, json.Unmarshal(sent.msg.Body, &env))
	require.NoError(t, env.Validate(OrderCreatedEventName, 1))
	assert.Equal(t, "storefront", env.Producer)
	assert.Equal(t, "o1", env.PartitionKey)
	require.NotNil(t, env.Sequence)
	assert.Equal(t, int64(2), *env.Sequence)
	assert.Equal(t, sent.msg.MessageId, env.EventID)
	assert.Equal(t, "SAVE10", env.Payload.PromoCode)
	assert.Equal(t, 45.0, env.Payload.TotalAmount)
	assert.Equal(t, "cbc", env.Payload.Items[0].TestID)
}

func TestPublishOrderStatusChanged(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch, &memSequences{next: map[string]int64{}})

	done := fixedNow
	o := &order.Order{ID: "o1", UserID: "u1", Status: order.StatusCompleted, UpdatedAt: &done, CompletedAt: &done}
	require.NoError(t, p.OrderStatusChanged(context.Background(), o, order.StatusProcessing))

	require.Len(t, ch.sent, 1)
	assert.Equal(t, OrderStatusChangedRoutingKey, ch.sent[0].key)

	var env EventEnvelope[OrderStatusChangedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &env))
	assert.Equal(t, order.StatusProcessing, env.Payload.From)
	assert.Equal(t, order.StatusCompleted, env.Payload.To)
	require.NotNil(t, env.Payload.CompletedAt)
	assert.True(t, done.Equal(*env.Payload.CompletedAt))
}

func TestPublishPromoRedeemedPartitionsByCode(t *testing.T) {
	ch := &fakeChannel{}
	seq := &memSequences{next: map[string]int64{}}
	p := newTestPublisher(ch, seq)

	require.NoError(t, p.PromoRedeemed(context.Background(), "SAVE10", "o1"))
	require.NoError(t, p.PromoRedeemed(context.Background(), "SAVE10", "o2"))
	require.NoError(t, p.PromoRedeemed(context.Background(), "TENOFF", "o3"))

	assert.Equal(t, int64(2), seq.next["promo:SAVE10"])
	assert.Equal(t, int64(1), seq.next["promo:TENOFF"])

	var env EventEnvelope[PromoRedeemedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[2].msg.Body, &env))
	assert.Equal(t, PromoRedeemedPayload{Code: "TENOFF", OrderID: "o3", RedeemedAt: fixedNow}, env.Payload)
}

func TestPublishSequenceFailureSkipsBroker(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch, &memSequences{err: errors.New("db down")})

	err := p.PromoRedeemed(context.Background(), "SAVE10", "o1")
	require.Error(t, err)
	assert.Empty(t, ch.sent)
}

func TestPublishFailedSendLeavesSequenceGap(t *testing.T) {
	ch := &fakeChannel{err: errors.New("connection reset")}
	seq := &memSequences{next: map[string]int64{}}
	p := newTestPublisher(ch, seq)

	require.Error(t, p.PromoRedeemed(context.Background(), "SAVE10", "o1"))
	ch.err = nil
	require.NoError(t, p.PromoRedeemed(context.Background(), "SAVE10", "o2"))

	require.Len(t, ch.sent, 1)
	var env EventEnvelope[PromoRedeemedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &env))
	require.NotNil(t, env.Sequence)
	assert.Equal(t, int64(2), *env.Sequence)
}

func TestPublishBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("connection reset")}
	p := newTestPublisher(ch, &memSequences{next: map[string]int64{}})
	o := &order.Order{ID: "o1"}

	for i := 0; i < 5; i++ {
		err := p.OrderCreated(context.Background(), o)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	err := p.OrderCreated(context.Background(), o)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestEnvelopeValidate(t *testing.T) {
	env := EventEnvelope[PromoRedeemedPayload]{EventName: PromoRedeemedEventName, EventVersion: 1, PartitionKey: "promo:X"}
	require.NoError(t, env.Validate(PromoRedeemedEventName, 1))
	require.Error(t, env.Validate(OrderCreatedEventName, 1))
	require.Error(t, env.Validate(PromoRedeemedEventName, 2))

	env.PartitionKey = ""
	require.Error(t, env.Validate(PromoRedeemedEventName, 1))
}

func TestNoopAcceptsEverything(t *testing.T) {
	n := Noop{Logger: zap.NewNop()}
	ctx := context.Background()
	assert.NoError(t, n.OrderCreated(ctx, &order.Order{ID: "o1"}))
	assert.NoError(t, n.OrderStatusChanged(ctx, &order.Order{ID: "o1"}, order.StatusPending))
	assert.NoError(t, n.PromoRedeemed(ctx, "SAVE10", "o1"))
}

var (
	_ order.Notifier = (*Publisher)(nil)
	_ order.Notifier = Noop{}
)
