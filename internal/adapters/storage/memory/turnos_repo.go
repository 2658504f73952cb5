package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
)

type turnosRepo struct {
	mu        sync.Mutex
	byID      map[string]turnos.Turno
	historial map[string][]turnos.HistorialCambio
}

func NewTurnosRepo() turnos.Repository {
	return &turnosRepo{
		byID:      make(map[string]turnos.Turno),
		historial: make(map[string][]turnos.HistorialCambio),
	}
}

// Create replica la semántica del adapter postgres: turno + historial bajo
// el mismo lock (unidad atómica) y unicidad exacta de slot para estados
// que ocupan el horario.
func (r *turnosRepo) Create(ctx context.Context, t turnos.Turno, h turnos.HistorialCambio) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		return errors.New("turno id requerido")
	}
	if _, exists := r.byID[t.ID]; exists {
		return errors.New("el turno ya existe")
	}
	if r.slotOcupadoLocked(t) {
		return turnos.ErrSlotOcupado
	}

	r.byID[t.ID] = t
	r.historial[t.ID] = append(r.historial[t.ID], h)
	return nil
}

func (r *turnosRepo) Update(ctx context.Context, t turnos.Turno, h turnos.HistorialCambio) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID]; !exists {
		return turnos.ErrNoEncontrado
	}
	if r.slotOcupadoLocked(t) {
		return turnos.ErrSlotOcupado
	}

	r.byID[t.ID] = t
	r.historial[t.ID] = append(r.historial[t.ID], h)
	return nil
}

// slotOcupadoLocked es el equivalente del índice parcial turnos_slot_unico.
func (r *turnosRepo) slotOcupadoLocked(t turnos.Turno) bool {
	if t.Estado == turnos.EstadoCancelado || t.Estado == turnos.EstadoNoShow {
		return false
	}
	for _, otro := range r.byID {
		if otro.ID == t.ID {
			continue
		}
		if otro.Estado == turnos.EstadoCancelado || otro.Estado == turnos.EstadoNoShow {
			continue
		}
		if otro.MedicoID == t.MedicoID && otro.Fecha.Equal(t.Fecha) && otro.Hora == t.Hora {
			return true
		}
	}
	return false
}

func (r *turnosRepo) GetByID(ctx context.Context, id string) (turnos.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return turnos.Turno{}, turnos.ErrNoEncontrado
	}
	return t, nil
}

func (r *turnosRepo) List(ctx context.Context, filter turnos.ListFilter) ([]turnos.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	out := make([]turnos.Turno, 0)
	for _, t := range r.byID {
		if filter.PacienteID != "" && t.PacienteID != filter.PacienteID {
			continue
		}
		if filter.MedicoID != "" && t.MedicoID != filter.MedicoID {
			continue
		}
		if filter.Estado != "" && t.Estado != filter.Estado {
			continue
		}
		if filter.Fecha != nil && !t.Fecha.Equal(*filter.Fecha) {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.After(out[j].Fecha)
		}
		return out[i].Hora > out[j].Hora
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *turnosRepo) PorMedicoYFecha(ctx context.Context, medicoID string, fecha time.Time) ([]turnos.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]turnos.Turno, 0)
	for _, t := range r.byID {
		if t.MedicoID == medicoID && t.Fecha.Equal(fecha) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hora < out[j].Hora })
	return out, nil
}

func (r *turnosRepo) Historial(ctx context.Context, turnoID string) ([]turnos.HistorialCambio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cambios := r.historial[turnoID]
	out := make([]turnos.HistorialCambio, len(cambios))
	copy(out, cambios)

	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	return out, nil
}
