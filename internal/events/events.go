// Package events publishes domain events to the broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"stitchdesk/internal/broker"
	"stitchdesk/internal/logger"
)

const (
	OrderCreated          = "order.created"
	OrderStatusChanged    = "order.status_changed"
	InventoryLowStock     = "inventory.low_stock"
	SubscriptionActivated = "subscription.activated"
	SubscriptionCancelled = "subscription.cancelled"
	SubscriptionExpired   = "subscription.expired"
)

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, name string, payload map[string]any)
}

// Publisher is satisfied by *broker.Client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

type Envelope struct {
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       map[string]any `json:"data"`
}

// Bus sends events to the topic exchange. A nil publisher drops them.
type Bus struct {
	pub Publisher
	log *logger.Logger
}

func NewBus(pub Publisher, log *logger.Logger) *Bus { return &Bus{pub: pub, log: log} }

func (b *Bus) Emit(ctx context.Context, name string, payload map[string]any) {
	l := b.log.Ctx(ctx)
	if b.pub == nil {
		l.Debug("event_dropped", map[string]any{"event": name})
		return
	}
	body, err := json.Marshal(Envelope{
		Event:      name,
		OccurredAt: time.Now().UTC(),
		RequestID:  logger.RequestID(ctx),
		Data:       payload,
	})
	if err != nil {
		l.Error("event_encode", err, map[string]any{"event": name})
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.pub.Publish(pctx, broker.EventsExchange, name, body); err != nil {
		l.Error("event_publish", err, map[string]any{"event": name})
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) {}
