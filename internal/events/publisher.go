package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "taxisync.bookings"

// AMQPPublisher publishes BookingEvents to a durable topic exchange, routed by event type.
type AMQPPublisher struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	p := &AMQPPublisher{conn: conn}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns the open channel, reopening it after a broker-side close.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, exchangeName, ev.Type, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }
