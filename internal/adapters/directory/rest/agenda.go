package rest

import (
	"context"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/httpclient"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"
)

// AgendaClient implementa directory.Agenda contra la API de
// agendamiento. Lo usa el notificador para recordatorios.
type AgendaClient struct {
	http *httpclient.Client
}

func NewAgendaClient(baseURL string, timeout time.Duration) (*AgendaClient, error) {
	c, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &AgendaClient{http: c}, nil
}

type turnoDTO struct {
	ID            string `json:"id"`
	PacienteID    string `json:"pacienteId"`
	MedicoID      string `json:"medicoId"`
	Fecha         string `json:"fecha"`
	Hora          string `json:"hora"`
	Estado        string `json:"estado"`
	Motivo        string `json:"motivo"`
	Observaciones string `json:"observaciones"`
}

func (dto turnoDTO) aTurno() directory.Turno {
	return directory.Turno{
		ID:            dto.ID,
		PacienteID:    dto.PacienteID,
		MedicoID:      dto.MedicoID,
		Fecha:         dto.Fecha,
		Hora:          dto.Hora,
		Estado:        dto.Estado,
		Motivo:        dto.Motivo,
		Observaciones: dto.Observaciones,
	}
}

func (c *AgendaClient) GetTurno(ctx context.Context, id string) (directory.Turno, error) {
	var dto turnoDTO
	if err := getJSON(ctx, c.http, "/api/turnos/"+id, &dto); err != nil {
		return directory.Turno{}, err
	}
	return dto.aTurno(), nil
}

func (c *AgendaClient) TurnosPorFecha(ctx context.Context, fecha string) ([]directory.Turno, error) {
	var dtos []turnoDTO
	if err := getJSON(ctx, c.http, "/api/turnos/fecha/"+fecha, &dtos); err != nil {
		return nil, err
	}
	turnos := make([]directory.Turno, 0, len(dtos))
	for _, dto := range dtos {
		turnos = append(turnos, dto.aTurno())
	}
	return turnos, nil
}
