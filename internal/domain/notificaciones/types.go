package notificaciones

// Canal de entrega de una notificación.
// @Enum EMAIL, SMS
type Canal string

const (
	CanalEmail Canal = "EMAIL"
	CanalSMS   Canal = "SMS"
)

// Tipo de notificación; junto con el canal selecciona la plantilla.
type Tipo string

const (
	TipoAgendamiento Tipo = "AGENDAMIENTO"
	TipoModificacion Tipo = "MODIFICACION"
	TipoCancelacion  Tipo = "CANCELACION"
	TipoConfirmacion Tipo = "CONFIRMACION"
	TipoRecordatorio Tipo = "RECORDATORIO"
)

// Estado de una notificación persistida.
type Estado string

const (
	EstadoPendiente Estado = "PENDIENTE"
	EstadoEnviando  Estado = "ENVIANDO"
	EstadoEnviado   Estado = "ENVIADO"
	EstadoFallido   Estado = "FALLIDO"
)
