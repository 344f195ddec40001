package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// Subscriber consumes announced confirmations with a durable JetStream
// consumer.
type Subscriber struct {
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber on an existing connection.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{js: js}, nil
}

// SubscribeConfirmations delivers each confirmation until handler succeeds
// or MaxDeliver is reached. Undecodable messages are terminated.
func (s *Subscriber) SubscribeConfirmations(ctx context.Context, durable string, handler func(ctx context.Context, c *domain.Confirmation) error) error {
	sub, err := s.js.Subscribe("picker.confirmations.>", func(msg *nats.Msg) {
		var c domain.Confirmation
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &c); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(5),
		nats.DeliverAll(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes every consumer. The connection is owned by the caller.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
