package natsadapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing an existing NATS connection.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{js: js}, nil
}

// SubscribeListingsImported delivers each import event to every running
// instance through an ephemeral consumer that starts at new messages.
func (s *Subscriber) SubscribeListingsImported(ctx context.Context, handler func(ctx context.Context, count int) error) error {
	sub, err := s.js.Subscribe(SubjectListingsImported, func(msg *nats.Msg) {
		count, err := strconv.Atoi(string(msg.Data))
		if err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, count); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes. The shared connection is closed by its owner.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
