package mq

import (
	"context"
	"fmt"

	"github.com/planetevo/apiserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations used for run events.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
	name    string
}

func New(backend Backend, name string) *MQ {
	return &MQ{backend: backend, name: name}
}

// Open connects to the backend selected by cfg.Events.Backend. It returns
// nil without error when events are disabled.
func Open(ctx context.Context, cfg config.Config) (*MQ, error) {
	switch cfg.Events.Backend {
	case "", config.EventsBackendNone:
		return nil, nil
	case config.EventsBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(client, config.EventsBackendRabbitMQ), nil
	case config.EventsBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(client, config.EventsBackendPubSub), nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Events.Backend)
	}
}

// Name returns the backend name, for logs.
func (m *MQ) Name() string {
	return m.name
}

func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe blocks, delivering messages from channel until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}
