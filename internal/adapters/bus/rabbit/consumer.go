package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"

	amqp "github.com/rabbitmq/amqp091-go"
)

const handleTimeout = 30 * time.Second

// Consumer consume eventos de una cola ligada al exchange de turnos.
// Los mensajes rechazados sin requeue van a parar a la dead letter
// queue para inspección manual.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   logger.Logger
}

type ConsumerOptions struct {
	URL      string
	Exchange string
	Queue    string
	// Bind es el patrón de routing keys a escuchar, ej "turno.*".
	Bind   string
	Logger logger.Logger
}

func NewConsumer(opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbit: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbit: channel: %w", err)
	}

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	if err := declareExchange(ch, opts.Exchange); err != nil {
		cleanup()
		return nil, err
	}

	dlx := opts.Exchange + ".dlx"
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: dlx declare: %w", err)
	}

	dlq := opts.Queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: dlq declare: %w", err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: dlq bind: %w", err)
	}

	_, err = ch.QueueDeclare(
		opts.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{"x-dead-letter-exchange": dlx},
	)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: queue declare: %w", err)
	}

	if err := ch.QueueBind(opts.Queue, opts.Bind, opts.Exchange, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: queue bind: %w", err)
	}

	// un mensaje en vuelo por vez, el orden de entrega importa para
	// las notificaciones de modificación
	if err := ch.Qos(1, 0, false); err != nil {
		cleanup()
		return nil, fmt.Errorf("rabbit: qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: opts.Queue, log: opts.Logger}, nil
}

// Run consume hasta que ctx se cancele o el canal AMQP se cierre.
func (c *Consumer) Run(ctx context.Context, handler bus.Handler) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbit: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbit: canal de entregas cerrado")
			}
			c.dispatch(ctx, handler, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, handler bus.Handler, d amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	e := bus.Event{
		ID:         d.MessageId,
		Key:        d.RoutingKey,
		OccurredAt: d.Timestamp,
		Payload:    d.Body,
	}

	outcome := handler(hctx, e)

	switch outcome {
	case bus.Processed:
		if err := d.Ack(false); err != nil {
			c.log.Error("rabbit: ack falló", map[string]any{"eventoId": e.ID, "err": err.Error()})
		}
	case bus.Retry:
		if err := d.Nack(false, true); err != nil {
			c.log.Error("rabbit: nack con requeue falló", map[string]any{"eventoId": e.ID, "err": err.Error()})
		}
	case bus.Poison:
		c.log.Warn("rabbit: evento descartado a dlq", map[string]any{"eventoId": e.ID, "key": e.Key})
		if err := d.Nack(false, false); err != nil {
			c.log.Error("rabbit: nack a dlq falló", map[string]any{"eventoId": e.ID, "err": err.Error()})
		}
	}
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
