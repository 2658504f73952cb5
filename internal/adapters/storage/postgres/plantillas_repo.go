package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"
)

type PlantillasRepo struct {
	db *sql.DB
}

func NewPlantillasRepo(db *sql.DB) *PlantillasRepo {
	return &PlantillasRepo{db: db}
}

func (r *PlantillasRepo) FindByTipoCanal(ctx context.Context, tipo notificaciones.Tipo, canal notificaciones.Canal) (notificaciones.Plantilla, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tipo, canal, asunto, contenido, variables, activa
		FROM plantillas
		WHERE tipo = $1 AND canal = $2 AND activa
	`, string(tipo), string(canal))

	var (
		p             notificaciones.Plantilla
		tipoS, canalS string
		variables     []byte
	)
	if err := row.Scan(&p.ID, &tipoS, &canalS, &p.Asunto, &p.Contenido, &variables, &p.Activa); err != nil {
		if err == sql.ErrNoRows {
			return notificaciones.Plantilla{}, notificaciones.ErrPlantillaNoEncontrada
		}
		return notificaciones.Plantilla{}, err
	}

	p.Tipo = notificaciones.Tipo(tipoS)
	p.Canal = notificaciones.Canal(canalS)
	if err := json.Unmarshal(variables, &p.Variables); err != nil {
		return notificaciones.Plantilla{}, err
	}
	return p, nil
}
