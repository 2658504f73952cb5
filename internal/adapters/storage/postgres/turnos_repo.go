package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
)

type TurnosRepo struct {
	db *sql.DB
}

func NewTurnosRepo(db *sql.DB) *TurnosRepo {
	return &TurnosRepo{db: db}
}

// Create inserta turno + historial en una misma transacción: o quedan los
// dos registros o ninguno. La violación del índice parcial de slot se
// traduce a ErrSlotOcupado.
func (r *TurnosRepo) Create(ctx context.Context, t turnos.Turno, h turnos.HistorialCambio) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turnos (
			id, paciente_id, medico_id,
			fecha, hora, dia_semana,
			estado, motivo, observaciones,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		t.ID,
		t.PacienteID,
		t.MedicoID,
		t.Fecha,
		t.Hora,
		t.DiaSemana,
		string(t.Estado),
		t.Motivo,
		t.Observaciones,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if esViolacionUnicidad(err) {
			return turnos.ErrSlotOcupado
		}
		return err
	}

	if err := insertHistorial(ctx, tx, h); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *TurnosRepo) Update(ctx context.Context, t turnos.Turno, h turnos.HistorialCambio) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE turnos SET
			paciente_id = $2, medico_id = $3,
			fecha = $4, hora = $5, dia_semana = $6,
			estado = $7, motivo = $8, observaciones = $9,
			updated_at = $10
		WHERE id = $1
	`,
		t.ID,
		t.PacienteID,
		t.MedicoID,
		t.Fecha,
		t.Hora,
		t.DiaSemana,
		string(t.Estado),
		t.Motivo,
		t.Observaciones,
		t.UpdatedAt,
	)
	if err != nil {
		if esViolacionUnicidad(err) {
			return turnos.ErrSlotOcupado
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return turnos.ErrNoEncontrado
	}

	if err := insertHistorial(ctx, tx, h); err != nil {
		return err
	}

	return tx.Commit()
}

func insertHistorial(ctx context.Context, tx *sql.Tx, h turnos.HistorialCambio) error {
	antes, err := marshalSnapshot(h.Antes)
	if err != nil {
		return err
	}
	despues, err := marshalSnapshot(h.Despues)
	if err != nil {
		return err
	}

	var usuarioID sql.NullString
	if h.UsuarioID != "" {
		usuarioID = sql.NullString{String: h.UsuarioID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO historial_cambios (
			id, turno_id, tipo_cambio, descripcion,
			usuario_id, antes, despues, changed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		h.ID,
		h.TurnoID,
		string(h.TipoCambio),
		h.Descripcion,
		usuarioID,
		antes,
		despues,
		h.ChangedAt,
	)
	return err
}

func marshalSnapshot(s *turnos.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

const turnoColumns = `
	id, paciente_id, medico_id,
	fecha, hora, dia_semana,
	estado, motivo, observaciones,
	created_at, updated_at
`

func (r *TurnosRepo) GetByID(ctx context.Context, id string) (turnos.Turno, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return turnos.Turno{}, turnos.ErrNoEncontrado
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+turnoColumns+` FROM turnos WHERE id = $1`, id)

	t, err := scanTurno(row)
	if err == sql.ErrNoRows {
		return turnos.Turno{}, turnos.ErrNoEncontrado
	}
	return t, err
}

func (r *TurnosRepo) List(ctx context.Context, filter turnos.ListFilter) ([]turnos.Turno, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + turnoColumns + ` FROM turnos WHERE 1=1`)

	args := []any{}
	argN := 1

	if filter.PacienteID != "" {
		sb.WriteString(fmt.Sprintf(" AND paciente_id = $%d", argN))
		args = append(args, filter.PacienteID)
		argN++
	}
	if filter.MedicoID != "" {
		sb.WriteString(fmt.Sprintf(" AND medico_id = $%d", argN))
		args = append(args, filter.MedicoID)
		argN++
	}
	if filter.Estado != "" {
		sb.WriteString(fmt.Sprintf(" AND estado = $%d", argN))
		args = append(args, string(filter.Estado))
		argN++
	}
	if filter.Fecha != nil {
		sb.WriteString(fmt.Sprintf(" AND fecha = $%d", argN))
		args = append(args, *filter.Fecha)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	sb.WriteString(" ORDER BY fecha DESC, hora DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]turnos.Turno, 0)
	for rows.Next() {
		t, err := scanTurno(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TurnosRepo) PorMedicoYFecha(ctx context.Context, medicoID string, fecha time.Time) ([]turnos.Turno, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+turnoColumns+`
		FROM turnos
		WHERE medico_id = $1 AND fecha = $2
		ORDER BY hora ASC
	`, medicoID, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]turnos.Turno, 0)
	for rows.Next() {
		t, err := scanTurno(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TurnosRepo) Historial(ctx context.Context, turnoID string) ([]turnos.HistorialCambio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, turno_id, tipo_cambio, descripcion, usuario_id, antes, despues, changed_at
		FROM historial_cambios
		WHERE turno_id = $1
		ORDER BY changed_at DESC
	`, turnoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]turnos.HistorialCambio, 0)
	for rows.Next() {
		var (
			h                    turnos.HistorialCambio
			tipo                 string
			usuarioID            sql.NullString
			antesRaw, despuesRaw []byte
		)
		if err := rows.Scan(&h.ID, &h.TurnoID, &tipo, &h.Descripcion, &usuarioID, &antesRaw, &despuesRaw, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.TipoCambio = turnos.TipoCambio(tipo)
		h.UsuarioID = usuarioID.String

		if h.Antes, err = unmarshalSnapshot(antesRaw); err != nil {
			return nil, err
		}
		if h.Despues, err = unmarshalSnapshot(despuesRaw); err != nil {
			return nil, err
		}

		out = append(out, h)
	}
	return out, rows.Err()
}

func unmarshalSnapshot(raw []byte) (*turnos.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s turnos.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurno(row rowScanner) (turnos.Turno, error) {
	var (
		t      turnos.Turno
		estado string
	)
	err := row.Scan(
		&t.ID,
		&t.PacienteID,
		&t.MedicoID,
		&t.Fecha,
		&t.Hora,
		&t.DiaSemana,
		&estado,
		&t.Motivo,
		&t.Observaciones,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return turnos.Turno{}, err
	}
	t.Estado = turnos.Estado(estado)
	t.Hora = strings.TrimSpace(t.Hora) // CHAR(5) viene con padding
	return t, nil
}
