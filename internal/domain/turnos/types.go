package turnos

import "time"

// Estado es el estado del ciclo de vida de un turno.
// @Enum PENDIENTE, CONFIRMADO, CANCELADO, COMPLETADO, NO_SHOW
type Estado string

const (
	EstadoPendiente  Estado = "PENDIENTE"
	EstadoConfirmado Estado = "CONFIRMADO"
	EstadoCancelado  Estado = "CANCELADO"
	EstadoCompletado Estado = "COMPLETADO"
	EstadoNoShow     Estado = "NO_SHOW"
)

func (e Estado) Valido() bool {
	switch e {
	case EstadoPendiente, EstadoConfirmado, EstadoCancelado, EstadoCompletado, EstadoNoShow:
		return true
	}
	return false
}

// Terminal: sin transiciones salientes. Cualquier mutación sobre un turno
// en estado terminal falla con ErrTransicionInvalida.
func (e Estado) Terminal() bool {
	switch e {
	case EstadoCancelado, EstadoCompletado, EstadoNoShow:
		return true
	}
	return false
}

func (e Estado) Label() string {
	switch e {
	case EstadoPendiente:
		return "Pendiente"
	case EstadoConfirmado:
		return "Confirmado"
	case EstadoCancelado:
		return "Cancelado"
	case EstadoCompletado:
		return "Completado"
	case EstadoNoShow:
		return "No se presentó"
	default:
		return string(e)
	}
}

// TipoCambio clasifica cada registro del historial.
type TipoCambio string

const (
	CambioCreacion     TipoCambio = "CREACION"
	CambioModificacion TipoCambio = "MODIFICACION"
	CambioCancelacion  TipoCambio = "CANCELACION"
	CambioConfirmacion TipoCambio = "CONFIRMACION"
	CambioCompletado   TipoCambio = "COMPLETADO"
	CambioNoShow       TipoCambio = "NO_SHOW"
)

// Ventana de atención: 08:00 a 18:00 inclusive. Domingo no se atiende.
const (
	aperturaMinutos = 8 * 60
	cierreMinutos   = 18 * 60
)

const diaNoLaborable = time.Sunday

var diasSemana = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// DiaSemanaLabel devuelve el nombre del día (0 = domingo).
func DiaSemanaLabel(dia int) string {
	if dia < 0 || dia >= len(diasSemana) {
		return "Desconocido"
	}
	return diasSemana[dia]
}
