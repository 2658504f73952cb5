package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"
)

type notificacionesRepo struct {
	mu   sync.Mutex
	rows map[string]notificaciones.Notificacion // key: eventoID + "|" + canal
}

func NewNotificacionesRepo() *notificacionesRepo {
	return &notificacionesRepo{
		rows: make(map[string]notificaciones.Notificacion),
	}
}

func (r *notificacionesRepo) Guardar(ctx context.Context, n notificaciones.Notificacion) (notificaciones.Notificacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := n.EventoID + "|" + string(n.Canal)
	if prev, ok := r.rows[key]; ok {
		n.ID = prev.ID
		n.Intentos = prev.Intentos + 1
		n.CreatedAt = prev.CreatedAt
	}
	r.rows[key] = n
	return n, nil
}

func (r *notificacionesRepo) ListByTurno(ctx context.Context, turnoID string) ([]notificaciones.Notificacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]notificaciones.Notificacion, 0)
	for _, n := range r.rows {
		if n.TurnoID == turnoID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
