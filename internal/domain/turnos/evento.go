package turnos

// Exchange topic durable donde se publican los eventos de turnos.
// Los consumidores se suscriben por patrón (turno.*).
const Exchange = "eventos.turnos"

// Routing keys: una por transición.
const (
	KeyCreado     = "turno.creado"
	KeyModificado = "turno.modificado"
	KeyCancelado  = "turno.cancelado"
	KeyConfirmado = "turno.confirmado"
	KeyCompletado = "turno.completado"
	KeyNoShow     = "turno.no_show"
)

// Tipos de evento dentro del payload.
const (
	EventoTurnoCreado     = "TURNO_CREADO"
	EventoTurnoModificado = "TURNO_MODIFICADO"
	EventoTurnoCancelado  = "TURNO_CANCELADO"
	EventoTurnoConfirmado = "TURNO_CONFIRMADO"
	EventoTurnoCompletado = "TURNO_COMPLETADO"
	EventoTurnoNoShow     = "TURNO_NO_SHOW"
)

// Evento es el payload JSON publicado por cada transición. Lleva el snapshot
// post-transición; la entrega es at-least-once, los consumidores deben
// tolerar duplicados.
type Evento struct {
	Tipo  string   `json:"tipo"`
	Turno Snapshot `json:"turno"`

	// Motivo viene solo en cancelaciones.
	Motivo string `json:"motivo,omitempty"`

	// Antes viene solo en modificaciones (para notificar fecha/hora anterior).
	Antes *Snapshot `json:"antes,omitempty"`
}
