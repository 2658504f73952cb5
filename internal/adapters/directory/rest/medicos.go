package rest

import (
	"context"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/httpclient"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"
)

// MedicosClient implementa directory.Medicos contra el microservicio
// de médicos.
type MedicosClient struct {
	http *httpclient.Client
}

func NewMedicosClient(baseURL string, timeout time.Duration) (*MedicosClient, error) {
	c, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &MedicosClient{http: c}, nil
}

type medicoDTO struct {
	ID           string `json:"id"`
	Nombre       string `json:"nombre"`
	Apellido     string `json:"apellido"`
	Especialidad string `json:"especialidad"`
}

func (c *MedicosClient) GetMedico(ctx context.Context, id string) (directory.Medico, error) {
	var dto medicoDTO
	if err := getEnvelope(ctx, c.http, "/api/medicos/"+id, &dto); err != nil {
		return directory.Medico{}, err
	}
	return directory.Medico{
		ID:           dto.ID,
		Nombre:       dto.Nombre,
		Apellido:     dto.Apellido,
		Especialidad: dto.Especialidad,
	}, nil
}
