package directory

// Paciente es la vista mínima que este servicio necesita del
// microservicio de pacientes. El CRUD completo vive afuera.
type Paciente struct {
	ID       string
	Nombre   string
	Apellido string
	Email    string
	Telefono string
}

// Medico es la vista mínima del microservicio de médicos.
type Medico struct {
	ID           string
	Nombre       string
	Apellido     string
	Especialidad string
}

// NombreCompleto arma "Nombre Apellido" para plantillas.
func (p Paciente) NombreCompleto() string {
	return p.Nombre + " " + p.Apellido
}

func (m Medico) NombreCompleto() string {
	return m.Nombre + " " + m.Apellido
}

// Turno es el snapshot de un turno visto desde afuera del servicio de
// agendamiento (lo usa el notificador para resolver datos al consumir eventos).
type Turno struct {
	ID            string
	PacienteID    string
	MedicoID      string
	Fecha         string // YYYY-MM-DD
	Hora          string // HH:MM
	Estado        string
	Motivo        string
	Observaciones string
}
