package directory

import (
	"context"
	"errors"
)

var (
	// ErrNoEncontrado: el servicio externo respondió 404.
	// Se distingue de ErrUpstream para que el caller pueda mapear a NotFound.
	ErrNoEncontrado = errors.New("directory: no encontrado")

	// ErrUpstream: el servicio externo no respondió o respondió con error.
	ErrUpstream = errors.New("directory: upstream no disponible")
)

// Pacientes resuelve pacientes contra el microservicio de pacientes.
type Pacientes interface {
	GetPaciente(ctx context.Context, id string) (Paciente, error)
}

// Medicos resuelve médicos contra el microservicio de médicos.
type Medicos interface {
	GetMedico(ctx context.Context, id string) (Medico, error)
}

// Agenda resuelve turnos contra el servicio de agendamiento.
// La usa el notificador (proceso separado) para snapshots y recordatorios.
type Agenda interface {
	GetTurno(ctx context.Context, id string) (Turno, error)
	TurnosPorFecha(ctx context.Context, fecha string) ([]Turno, error)
}
