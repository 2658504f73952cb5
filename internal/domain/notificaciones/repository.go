package notificaciones

import "context"

// NotificacionRepository persiste el resultado de cada entrega.
type NotificacionRepository interface {
	// Guardar hace upsert por (EventoID, Canal): la primera vez crea el
	// registro con Intentos=1; en redeliveries incrementa Intentos y
	// actualiza estado/error. Devuelve el registro resultante.
	Guardar(ctx context.Context, n Notificacion) (Notificacion, error)

	ListByTurno(ctx context.Context, turnoID string) ([]Notificacion, error)
}

// PlantillaRepository resuelve la plantilla activa para (tipo, canal).
// Devuelve ErrPlantillaNoEncontrada si no hay ninguna activa.
type PlantillaRepository interface {
	FindByTipoCanal(ctx context.Context, tipo Tipo, canal Canal) (Plantilla, error)
}

// Sender es el transporte de un canal (SMTP, gateway SMS). Los transportes
// reales viven afuera de este core; acá solo se define el contrato.
type Sender interface {
	Canal() Canal
	Send(ctx context.Context, destinatario, asunto, contenido string) error
}
