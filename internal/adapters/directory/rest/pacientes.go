package rest

import (
	"context"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/httpclient"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"
)

// PacientesClient implementa directory.Pacientes contra el
// microservicio de pacientes.
type PacientesClient struct {
	http *httpclient.Client
}

func NewPacientesClient(baseURL string, timeout time.Duration) (*PacientesClient, error) {
	c, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &PacientesClient{http: c}, nil
}

type pacienteDTO struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

func (c *PacientesClient) GetPaciente(ctx context.Context, id string) (directory.Paciente, error) {
	var dto pacienteDTO
	if err := getEnvelope(ctx, c.http, "/api/pacientes/"+id, &dto); err != nil {
		return directory.Paciente{}, err
	}
	return directory.Paciente{
		ID:       dto.ID,
		Nombre:   dto.Nombre,
		Apellido: dto.Apellido,
		Email:    dto.Email,
		Telefono: dto.Telefono,
	}, nil
}
