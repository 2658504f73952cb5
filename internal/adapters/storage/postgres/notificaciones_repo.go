package postgres

import (
	"context"
	"database/sql"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"
)

type NotificacionesRepo struct {
	db *sql.DB
}

func NewNotificacionesRepo(db *sql.DB) *NotificacionesRepo {
	return &NotificacionesRepo{db: db}
}

// Guardar hace upsert por (evento_id, canal). Las redeliveries at-least-once
// del bus terminan acá: en vez de duplicar la fila, incrementan intentos.
func (r *NotificacionesRepo) Guardar(ctx context.Context, n notificaciones.Notificacion) (notificaciones.Notificacion, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notificaciones (
			id, tipo, canal, destinatario,
			asunto, contenido, estado, intentos, error,
			paciente_id, medico_id, turno_id, evento_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (evento_id, canal) DO UPDATE SET
			estado     = EXCLUDED.estado,
			asunto     = EXCLUDED.asunto,
			contenido  = EXCLUDED.contenido,
			error      = EXCLUDED.error,
			intentos   = notificaciones.intentos + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING id, intentos
	`,
		n.ID,
		string(n.Tipo),
		string(n.Canal),
		n.Destinatario,
		n.Asunto,
		n.Contenido,
		string(n.Estado),
		n.Intentos,
		n.Error,
		n.PacienteID,
		n.MedicoID,
		n.TurnoID,
		n.EventoID,
		n.CreatedAt,
		n.UpdatedAt,
	)

	if err := row.Scan(&n.ID, &n.Intentos); err != nil {
		return notificaciones.Notificacion{}, err
	}
	return n, nil
}

func (r *NotificacionesRepo) ListByTurno(ctx context.Context, turnoID string) ([]notificaciones.Notificacion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, tipo, canal, destinatario,
			asunto, contenido, estado, intentos, error,
			paciente_id, medico_id, turno_id, evento_id,
			created_at, updated_at
		FROM notificaciones
		WHERE turno_id = $1
		ORDER BY created_at DESC
	`, turnoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notificaciones.Notificacion, 0)
	for rows.Next() {
		var (
			n                   notificaciones.Notificacion
			tipo, canal, estado string
		)
		if err := rows.Scan(
			&n.ID,
			&tipo,
			&canal,
			&n.Destinatario,
			&n.Asunto,
			&n.Contenido,
			&estado,
			&n.Intentos,
			&n.Error,
			&n.PacienteID,
			&n.MedicoID,
			&n.TurnoID,
			&n.EventoID,
			&n.CreatedAt,
			&n.UpdatedAt,
		); err != nil {
			return nil, err
		}
		n.Tipo = notificaciones.Tipo(tipo)
		n.Canal = notificaciones.Canal(canal)
		n.Estado = notificaciones.Estado(estado)
		out = append(out, n)
	}
	return out, rows.Err()
}
