package turnos

import "errors"

// Taxonomía de errores del ciclo de vida. Los handlers mapean con errors.Is:
// ErrValidacion → 400, ErrNoEncontrado → 404, ErrTransicionInvalida → 409,
// ErrSlotOcupado → 409, ErrUpstream → 502.
var (
	ErrValidacion         = errors.New("datos de turno inválidos")
	ErrNoEncontrado       = errors.New("no encontrado")
	ErrTransicionInvalida = errors.New("transición de estado inválida")
	ErrSlotOcupado        = errors.New("el médico no está disponible en ese horario")
	ErrUpstream           = errors.New("servicio externo no disponible")
)
