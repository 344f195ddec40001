package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// ConfirmationStream holds every announced confirmation.
const ConfirmationStream = "PICKER_CONFIRMATIONS"

// Publisher implements ports.ConfirmationPublisher using NATS JetStream.
type Publisher struct {
	js nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      ConfirmationStream,
		Subjects:  []string{"picker.confirmations.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{js: js}, nil
}

// PublishConfirmation announces c. The confirmation ID doubles as the
// JetStream dedup ID so workflow retries do not duplicate messages.
func (p *Publisher) PublishConfirmation(ctx context.Context, c *domain.Confirmation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(domain.ConfirmationSubject(c.ID), data, nats.MsgId(c.ID), nats.Context(ctx))
	return err
}
