package notificaciones

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPlantillaNoEncontrada = errors.New("plantilla no encontrada")
	ErrVariableFaltante      = errors.New("variable de plantilla faltante")
)

// Plantilla es un descriptor tipado: declara su set de variables requeridas
// y Render falla si alguna falta, en vez de mandar texto roto al paciente.
type Plantilla struct {
	ID    string
	Tipo  Tipo
	Canal Canal

	// Asunto solo aplica a EMAIL; vacío para SMS.
	Asunto    string
	Contenido string

	// Variables declaradas; los placeholders son {{variable}}.
	Variables []string

	Activa bool
}

type Rendered struct {
	Asunto    string
	Contenido string
}

// Render sustituye cada {{variable}} declarada en asunto y contenido.
// Determinístico y puro: sin control flow, sin llamadas externas.
func (p Plantilla) Render(vars map[string]string) (Rendered, error) {
	asunto := p.Asunto
	contenido := p.Contenido

	for _, v := range p.Variables {
		valor, ok := vars[v]
		if !ok {
			return Rendered{}, fmt.Errorf("%w: %s", ErrVariableFaltante, v)
		}
		placeholder := "{{" + v + "}}"
		asunto = strings.ReplaceAll(asunto, placeholder, valor)
		contenido = strings.ReplaceAll(contenido, placeholder, valor)
	}

	return Rendered{Asunto: asunto, Contenido: contenido}, nil
}
