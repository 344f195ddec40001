// Package memory provides an in-process event bus for single-node
// deployments and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/pinpoint/internal/core/ports"
)

const subscriptionBuffer = 256

// Bus implements ports.EventBus with NATS subject semantics ("*" matches one
// token, ">" matches the rest).
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

type subscription struct {
	pattern []string
	handler func(ports.Message)
	ch      chan ports.Message
	done    chan struct{}
	once    sync.Once
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscription)}
}

func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	b.deliver(ctx, ports.Message{Subject: subject, Data: data})
	return nil
}

// Subscribe delivers messages on a dedicated goroutine, one at a time, in
// publish order.
func (b *Bus) Subscribe(subject string, handler func(msg ports.Message)) (func(), error) {
	s := &subscription{
		pattern: strings.Split(subject, "."),
		handler: handler,
		ch:      make(chan ports.Message, subscriptionBuffer),
		done:    make(chan struct{}),
	}
	id := uuid.NewString()

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case msg := <-s.ch:
				s.handler(msg)
			}
		}
	}()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		s.once.Do(func() { close(s.done) })
	}, nil
}

// Request publishes with a one-shot reply handle and waits for the first
// answer.
func (b *Bus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	reply := make(chan []byte, 1)
	msg := ports.Message{
		Subject: subject,
		Data:    data,
		Respond: func(resp []byte) error {
			select {
			case reply <- resp:
			default:
			}
			return nil
		},
	}
	if b.deliver(ctx, msg) == 0 {
		return nil, ports.ErrNoResponders
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bus) deliver(ctx context.Context, msg ports.Message) int {
	tokens := strings.Split(msg.Subject, ".")

	b.mu.RLock()
	var matched []*subscription
	for _, s := range b.subs {
		if match(s.pattern, tokens) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return len(matched)
		}
	}
	return len(matched)
}

func match(pattern, tokens []string) bool {
	for i, p := range pattern {
		if p == ">" {
			return len(tokens) > i
		}
		if i >= len(tokens) {
			return false
		}
		if p != "*" && p != tokens[i] {
			return false
		}
	}
	return len(pattern) == len(tokens)
}
