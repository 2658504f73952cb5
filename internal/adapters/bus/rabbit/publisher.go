package rabbit

import (
	"context"
	"fmt"
	"sync"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publica eventos en un exchange topic durable con delivery
// persistente. La conexión se arma una vez en main y se inyecta.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	// el canal AMQP no es seguro para publicación concurrente
	mu sync.Mutex
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbit: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbit: channel: %w", err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbit: exchange declare: %w", err)
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, e bus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		e.Key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Body:         e.Payload,
		},
	)
}

func (p *Publisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}
