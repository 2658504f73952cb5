package turnos

import "time"

// Turno representa una reserva entre un paciente y un médico en una
// fecha/hora dadas. Nunca se borra: la cancelación es un estado.
type Turno struct {
	ID         string
	PacienteID string
	MedicoID   string

	Fecha     time.Time // solo la parte fecha (UTC, medianoche)
	Hora      string    // HH:MM, granularidad de minuto
	DiaSemana int       // 0 = domingo; debe coincidir con Fecha

	Estado        Estado
	Motivo        string
	Observaciones string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistorialCambio es un registro inmutable del historial de un turno.
// Se escribe uno por transición, en la misma transacción que la mutación.
type HistorialCambio struct {
	ID          string
	TurnoID     string
	TipoCambio  TipoCambio
	Descripcion string

	// UsuarioID vacío = cambio iniciado por el sistema.
	UsuarioID string

	// Antes es nil solo para CREACION.
	Antes   *Snapshot
	Despues *Snapshot

	ChangedAt time.Time
}

// Snapshot es la forma serializable de un turno. Se usa tanto en los
// before/after del historial como en el payload de los eventos.
type Snapshot struct {
	ID            string    `json:"id"`
	PacienteID    string    `json:"pacienteId"`
	MedicoID      string    `json:"medicoId"`
	Fecha         string    `json:"fecha"` // YYYY-MM-DD
	Hora          string    `json:"hora"`  // HH:MM
	DiaSemana     int       `json:"diaSemana"`
	Estado        Estado    `json:"estado"`
	Motivo        string    `json:"motivo,omitempty"`
	Observaciones string    `json:"observaciones,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const formatoFecha = "2006-01-02"

func (t Turno) Snapshot() Snapshot {
	return Snapshot{
		ID:            t.ID,
		PacienteID:    t.PacienteID,
		MedicoID:      t.MedicoID,
		Fecha:         t.Fecha.Format(formatoFecha),
		Hora:          t.Hora,
		DiaSemana:     t.DiaSemana,
		Estado:        t.Estado,
		Motivo:        t.Motivo,
		Observaciones: t.Observaciones,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
