package turnos

import (
	"context"
	"time"
)

// Repository es el único puerto de persistencia de turnos.
// Create y Update reciben el registro de historial junto con la mutación:
// el adapter es responsable de aplicar ambos en una misma unidad atómica.
// Además el adapter debe garantizar la unicidad de slot
// (medico, fecha, hora) para estados no terminales y devolver
// ErrSlotOcupado cuando se viola, nunca un error genérico de storage.
type Repository interface {
	Create(ctx context.Context, t Turno, h HistorialCambio) error
	Update(ctx context.Context, t Turno, h HistorialCambio) error

	GetByID(ctx context.Context, id string) (Turno, error)
	List(ctx context.Context, filter ListFilter) ([]Turno, error)

	// PorMedicoYFecha devuelve todos los turnos del médico en esa fecha,
	// cualquier estado. Lo usa el chequeo de disponibilidad.
	PorMedicoYFecha(ctx context.Context, medicoID string, fecha time.Time) ([]Turno, error)

	// Historial devuelve los cambios del turno ordenados por changed_at DESC.
	Historial(ctx context.Context, turnoID string) ([]HistorialCambio, error)
}

type ListFilter struct {
	PacienteID string
	MedicoID   string
	Estado     Estado
	Fecha      *time.Time
	Limit      int
}
