package notificaciones

import "time"

// Notificacion es el registro durable de cada intento de entrega.
// Es el sink del pipeline: el evento se ackea recién cuando este registro
// quedó escrito, sin importar si el transporte pudo enviar o no.
type Notificacion struct {
	ID string

	Tipo  Tipo
	Canal Canal

	Destinatario string
	Asunto       string
	Contenido    string

	Estado   Estado
	Intentos int
	Error    string

	// Referencias al origen (no owned).
	PacienteID string
	MedicoID   string
	TurnoID    string

	// EventoID identifica el evento que originó la notificación; el par
	// (EventoID, Canal) deduplica redeliveries at-least-once.
	EventoID string

	CreatedAt time.Time
	UpdatedAt time.Time
}
