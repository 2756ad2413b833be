package feed

import (
	"context"
	"fmt"

	aqmevents "github.com/appetiteclub/apt/events"
	"github.com/chopline/kds/internal/events"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

type NATSSubscriber struct {
	conn *nats.Conn
}

func NewNATSSubscriber(url string) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn}, nil
}

// SetReconnectHandler registers a hook invoked after the connection recovers.
// Events published while disconnected are lost, so consumers resynchronize
// from the store in this hook.
func (s *NATSSubscriber) SetReconnectHandler(fn func()) {
	s.conn.SetReconnectHandler(func(*nats.Conn) {
		fn()
	})
}

// Subscribe delivers messages on topic to handler and returns a handle the
// consumer can unsubscribe with.
func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler aqmevents.HandlerFunc) (events.Subscription, error) {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
		}
	})
	if err != nil {
		return nil, err
	}
	return natsSubscription{sub: sub}, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
