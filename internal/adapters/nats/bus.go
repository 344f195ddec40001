package natsadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinpoint/internal/core/ports"
)

// Bus implements ports.EventBus over core NATS. Session events are
// fire-and-forget; geolocation uses request/reply.
type Bus struct {
	conn *nats.Conn
}

// NewBus wraps an existing connection.
func NewBus(conn *nats.Conn) *Bus {
	return &Bus{conn: conn}
}

func (b *Bus) Publish(_ context.Context, subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Subscribe delivers messages on the NATS client's per-subscription
// goroutine, which preserves publish order.
func (b *Bus) Subscribe(subject string, handler func(msg ports.Message)) (func(), error) {
	sub, err := b.conn.Subscribe(subject, func(m *nats.Msg) {
		msg := ports.Message{Subject: m.Subject, Data: m.Data}
		if m.Reply != "" {
			msg.Respond = m.Respond
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *Bus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return nil, ports.ErrNoResponders
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return nil, context.DeadlineExceeded
	case err != nil:
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}
	return msg.Data, nil
}
