package memory

import (
	"context"
	"sync"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"

	"github.com/google/uuid"
)

type plantillasRepo struct {
	mu   sync.RWMutex
	byTC map[string]notificaciones.Plantilla // key: tipo + "|" + canal
}

// NewPlantillasRepo arranca con las plantillas por defecto ya cargadas
// (mismo set que el seed de la base).
func NewPlantillasRepo() *plantillasRepo {
	r := &plantillasRepo{byTC: make(map[string]notificaciones.Plantilla)}
	for _, p := range plantillasDefault() {
		r.byTC[string(p.Tipo)+"|"+string(p.Canal)] = p
	}
	return r
}

func (r *plantillasRepo) FindByTipoCanal(ctx context.Context, tipo notificaciones.Tipo, canal notificaciones.Canal) (notificaciones.Plantilla, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byTC[string(tipo)+"|"+string(canal)]
	if !ok || !p.Activa {
		return notificaciones.Plantilla{}, notificaciones.ErrPlantillaNoEncontrada
	}
	return p, nil
}

func plantillasDefault() []notificaciones.Plantilla {
	varsBase := []string{"pacienteNombre", "fecha", "hora", "medicoNombre", "especialidad"}

	return []notificaciones.Plantilla{
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoAgendamiento, Canal: notificaciones.CanalEmail,
			Asunto:    "Turno Agendado - {{fecha}}",
			Contenido: "Hola {{pacienteNombre}}, su turno con Dr. {{medicoNombre}} ({{especialidad}}) quedó agendado para el {{fecha}} a las {{hora}}. Recibirá una confirmación. Centro Médico.",
			Variables: varsBase, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoAgendamiento, Canal: notificaciones.CanalSMS,
			Contenido: "Hola {{pacienteNombre}}! Su turno del {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} quedó agendado. Centro Médico.",
			Variables: []string{"pacienteNombre", "fecha", "hora", "medicoNombre"}, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoConfirmacion, Canal: notificaciones.CanalEmail,
			Asunto:    "Confirmación de Cita Médica - {{fecha}}",
			Contenido: "Hola {{pacienteNombre}}, su cita médica ha sido confirmada para el {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} ({{especialidad}}). Llegue 15 minutos antes. Centro Médico.",
			Variables: varsBase, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoConfirmacion, Canal: notificaciones.CanalSMS,
			Contenido: "Hola {{pacienteNombre}}! Su cita médica ha sido confirmada para el {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} ({{especialidad}}). Llegue 15 min antes. Centro Médico.",
			Variables: varsBase, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoModificacion, Canal: notificaciones.CanalEmail,
			Asunto:    "Modificación de Cita Médica",
			Contenido: "Hola {{pacienteNombre}}, su cita del {{fechaAnterior}} a las {{horaAnterior}} fue reprogramada para el {{fechaNueva}} a las {{horaNueva}} con Dr. {{medicoNombre}}. Disculpe las molestias. Centro Médico.",
			Variables: []string{"pacienteNombre", "fechaAnterior", "horaAnterior", "fechaNueva", "horaNueva", "medicoNombre"}, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoModificacion, Canal: notificaciones.CanalSMS,
			Contenido: "Hola {{pacienteNombre}}! Su cita médica fue modificada para el {{fechaNueva}} a las {{horaNueva}} con Dr. {{medicoNombre}}. Centro Médico.",
			Variables: []string{"pacienteNombre", "fechaNueva", "horaNueva", "medicoNombre"}, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoCancelacion, Canal: notificaciones.CanalEmail,
			Asunto:    "Cancelación de Cita Médica",
			Contenido: "Hola {{pacienteNombre}}, su cita del {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} fue cancelada. Motivo: {{motivo}}. Para reagendar contáctenos. Centro Médico.",
			Variables: []string{"pacienteNombre", "fecha", "hora", "medicoNombre", "motivo"}, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoCancelacion, Canal: notificaciones.CanalSMS,
			Contenido: "Hola {{pacienteNombre}}! Su cita médica del {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} ha sido cancelada. Para reagendar contáctenos. Centro Médico.",
			Variables: []string{"pacienteNombre", "fecha", "hora", "medicoNombre"}, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoRecordatorio, Canal: notificaciones.CanalEmail,
			Asunto:    "Recordatorio de Cita Médica - Mañana",
			Contenido: "Hola {{pacienteNombre}}, le recordamos su cita de mañana {{fecha}} a las {{hora}} con Dr. {{medicoNombre}} ({{especialidad}}). Llegue 15 minutos antes. Centro Médico.",
			Variables: varsBase, Activa: true,
		},
		{
			ID: uuid.NewString(), Tipo: notificaciones.TipoRecordatorio, Canal: notificaciones.CanalSMS,
			Contenido: "Hola {{pacienteNombre}}! Recordatorio: mañana tiene cita a las {{hora}} con Dr. {{medicoNombre}} ({{especialidad}}). Llegue 15 min antes. Centro Médico.",
			Variables: []string{"pacienteNombre", "hora", "medicoNombre", "especialidad"}, Activa: true,
		},
	}
}
