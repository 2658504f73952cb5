package bus

import (
	"context"
	"time"
)

// Event es el sobre que viaja por el exchange. Payload es JSON ya serializado;
// cada dominio define su propio payload (ver turnos.Evento).
type Event struct {
	ID         string
	Key        string // routing key, ej: turno.creado
	OccurredAt time.Time
	Payload    []byte
}

// Publisher publica eventos de dominio. La publicación es best-effort
// respecto de la transacción primaria: el caller loguea el error y sigue.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Outcome es el resultado explícito de procesar un evento.
// El adapter de transporte lo mapea a ack / requeue / dead-letter;
// el handler nunca toca ack/nack directamente.
type Outcome int

const (
	// Processed: el evento quedó procesado (ack).
	Processed Outcome = iota
	// Retry: falla transitoria, reencolar (nack requeue).
	Retry
	// Poison: el evento nunca va a poder procesarse, va a la dead-letter queue.
	Poison
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Retry:
		return "retry"
	case Poison:
		return "poison"
	default:
		return "unknown"
	}
}

// Handler procesa un evento y devuelve qué hacer con él.
type Handler func(ctx context.Context, e Event) Outcome
