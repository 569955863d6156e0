package broker

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirm struct{ ack chan bool }

func (f fakeConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-f.ack:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fakeChannel hands out one confirmation per publish. replies are queued
// onto the confirmations in publish order; a publish past the end of
// replies gets no answer until the test sends one.
type fakeChannel struct {
	replies  []bool
	confirms []fakeConfirm
	sent     []amqp.Publishing
}

func (f *fakeChannel) publish(_ context.Context, _, _ string, msg amqp.Publishing) (confirmation, error) {
	fc := fakeConfirm{ack: make(chan bool, 1)}
	if n := len(f.confirms); n < len(f.replies) {
		fc.ack <- f.replies[n]
	}
	f.confirms = append(f.confirms, fc)
	f.sent = append(f.sent, msg)
	return fc, nil
}

func TestPublishWaitsForItsOwnConfirm(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{publish: ch.publish}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Publish(ctx, EventsExchange, "order.created", []byte(`{"n":1}`))
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned message is acked late; the next publish is nacked.
	ch.confirms[0].ack <- true
	ch.replies = []bool{true, false, true}

	err = c.Publish(context.Background(), EventsExchange, "order.created", []byte(`{"n":2}`))
	assert.ErrorIs(t, err, ErrNack)

	require.NoError(t, c.Publish(context.Background(), EventsExchange, "order.created", []byte(`{"n":3}`)))
	require.Len(t, ch.sent, 3)
}

func TestPublishMessageShape(t *testing.T) {
	ch := &fakeChannel{replies: []bool{true}}
	c := &Client{publish: ch.publish}

	require.NoError(t, c.Publish(context.Background(), NotificationsExchange, EmailRoutingKey, []byte(`{}`)))
	require.Len(t, ch.sent, 1)
	msg := ch.sent[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestPingClosedClient(t *testing.T) {
	assert.Error(t, (&Client{}).Ping())
}
