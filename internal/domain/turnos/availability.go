package turnos

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// VentanaConflicto: dos turnos del mismo médico a menos de 30 minutos
// entre sí chocan. Política elegida (y documentada acá) porque las consultas
// tienen duración real: un turno a las 14:00 bloquea 13:31–14:29; 14:30 es
// válido. Los turnos CANCELADO y NO_SHOW liberan el slot.
const VentanaConflicto = 30 * time.Minute

var horaRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// parseHora convierte "HH:MM" a minutos desde medianoche.
func parseHora(hora string) (int, error) {
	hora = strings.TrimSpace(hora)
	if !horaRe.MatchString(hora) {
		return 0, fmt.Errorf("%w: la hora debe tener formato HH:MM (24h)", ErrValidacion)
	}
	parts := strings.SplitN(hora, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m, nil
}

// Disponibilidad decide si un slot (médico, fecha, hora) es reservable.
// Es un pre-chequeo: el backstop real es la restricción de unicidad del
// storage (dos Crear concurrentes pueden ver "disponible" a la vez).
type Disponibilidad struct {
	repo Repository
}

func NewDisponibilidad(repo Repository) *Disponibilidad {
	return &Disponibilidad{repo: repo}
}

// EstaDisponible informa si el slot está libre. excluirTurnoID permite
// ignorar el propio turno al reprogramar (vacío en creación).
func (d *Disponibilidad) EstaDisponible(ctx context.Context, medicoID string, fecha time.Time, hora string, excluirTurnoID string) (bool, error) {
	pedida, err := parseHora(hora)
	if err != nil {
		return false, err
	}

	existentes, err := d.repo.PorMedicoYFecha(ctx, medicoID, fecha)
	if err != nil {
		return false, err
	}

	for _, t := range existentes {
		if t.ID == excluirTurnoID {
			continue
		}
		if t.Estado == EstadoCancelado || t.Estado == EstadoNoShow {
			continue
		}

		ocupada, err := parseHora(t.Hora)
		if err != nil {
			// hora corrupta en storage: el slot se considera ocupado
			return false, nil
		}

		diff := pedida - ocupada
		if diff < 0 {
			diff = -diff
		}
		if time.Duration(diff)*time.Minute < VentanaConflicto {
			return false, nil
		}
	}

	return true, nil
}
