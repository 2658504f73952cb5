package notificaciones

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"

	"github.com/google/uuid"
)

// Dispatcher consume eventos de turnos y produce notificaciones.
// Handle devuelve un bus.Outcome explícito; el transporte decide
// ack / requeue / dead-letter a partir de él.
type Dispatcher struct {
	notifs     NotificacionRepository
	plantillas PlantillaRepository
	pacientes  directory.Pacientes
	medicos    directory.Medicos
	agenda     directory.Agenda
	senders    map[Canal]Sender
	log        logger.Logger

	// lookupTimeout acota cada resolución contra servicios externos.
	lookupTimeout time.Duration

	now   func() time.Time
	newID func() string
}

type DispatcherOptions struct {
	Notificaciones NotificacionRepository
	Plantillas     PlantillaRepository
	Pacientes      directory.Pacientes
	Medicos        directory.Medicos
	Agenda         directory.Agenda
	Senders        []Sender
	Logger         logger.Logger
	LookupTimeout  time.Duration
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	senders := make(map[Canal]Sender, len(opts.Senders))
	for _, s := range opts.Senders {
		senders[s.Canal()] = s
	}

	return &Dispatcher{
		notifs:        opts.Notificaciones,
		plantillas:    opts.Plantillas,
		pacientes:     opts.Pacientes,
		medicos:       opts.Medicos,
		agenda:        opts.Agenda,
		senders:       senders,
		log:           opts.Logger,
		lookupTimeout: timeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// tipoPorKey mapea routing key a tipo de notificación. Completado y no-show
// no generan notificación al paciente.
func tipoPorKey(key string) (Tipo, bool) {
	switch key {
	case turnos.KeyCreado:
		return TipoAgendamiento, true
	case turnos.KeyModificado:
		return TipoModificacion, true
	case turnos.KeyCancelado:
		return TipoCancelacion, true
	case turnos.KeyConfirmado:
		return TipoConfirmacion, true
	case turnos.KeyCompletado, turnos.KeyNoShow:
		return "", false
	default:
		return "", false
	}
}

// Handle procesa un evento de turno. Reglas de outcome:
//   - payload indecodificable o entidad referida inexistente => Poison
//   - lookup externo caído o persistencia fallida => Retry
//   - todo lo demás (incluyendo fallas de transporte o de render) queda
//     registrado como notificación FALLIDA y el evento se ackea.
func (d *Dispatcher) Handle(ctx context.Context, e bus.Event) bus.Outcome {
	var evt turnos.Evento
	if err := json.Unmarshal(e.Payload, &evt); err != nil {
		d.log.Error("payload de evento indecodificable", map[string]any{"key": e.Key, "err": err.Error()})
		return bus.Poison
	}

	tipo, ok := tipoPorKey(e.Key)
	if !ok {
		if e.Key == turnos.KeyCompletado || e.Key == turnos.KeyNoShow {
			d.log.Debug("evento sin notificación asociada", map[string]any{"key": e.Key})
			return bus.Processed
		}
		d.log.Error("routing key desconocida", map[string]any{"key": e.Key})
		return bus.Poison
	}

	extra := map[string]string{}
	switch tipo {
	case TipoCancelacion:
		motivo := evt.Motivo
		if motivo == "" {
			motivo = "No especificado"
		}
		extra["motivo"] = motivo
	case TipoModificacion:
		extra["fechaNueva"] = formatearFecha(evt.Turno.Fecha)
		extra["horaNueva"] = evt.Turno.Hora
		if evt.Antes != nil {
			extra["fechaAnterior"] = formatearFecha(evt.Antes.Fecha)
			extra["horaAnterior"] = evt.Antes.Hora
		} else {
			extra["fechaAnterior"] = "N/A"
			extra["horaAnterior"] = "N/A"
		}
	}

	t := directory.Turno{
		ID:         evt.Turno.ID,
		PacienteID: evt.Turno.PacienteID,
		MedicoID:   evt.Turno.MedicoID,
		Fecha:      evt.Turno.Fecha,
		Hora:       evt.Turno.Hora,
		Estado:     string(evt.Turno.Estado),
	}

	return d.notificar(ctx, tipo, e.ID, t, extra)
}

// EnviarRecordatorios despacha recordatorios para todos los turnos
// PENDIENTE/CONFIRMADO de la fecha dada. Lo dispara el cron diario.
func (d *Dispatcher) EnviarRecordatorios(ctx context.Context, fecha string) error {
	lctx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
	turnosDia, err := d.agenda.TurnosPorFecha(lctx, fecha)
	cancel()
	if err != nil {
		return err
	}

	for _, t := range turnosDia {
		if t.Estado != string(turnos.EstadoPendiente) && t.Estado != string(turnos.EstadoConfirmado) {
			continue
		}

		// El eventoID sintético deduplica si el job corre dos veces.
		eventoID := "recordatorio:" + fecha + ":" + t.ID
		outcome := d.notificar(ctx, TipoRecordatorio, eventoID, t, nil)
		if outcome != bus.Processed {
			d.log.Warn("recordatorio no procesado", map[string]any{
				"turnoId": t.ID,
				"outcome": outcome.String(),
			})
		}
	}

	return nil
}

type resultadoCanal struct {
	notificacion Notificacion
}

func (d *Dispatcher) notificar(ctx context.Context, tipo Tipo, eventoID string, t directory.Turno, extra map[string]string) bus.Outcome {
	paciente, outcome := d.resolverPaciente(ctx, t.PacienteID)
	if outcome != bus.Processed {
		return outcome
	}
	medico, outcome := d.resolverMedico(ctx, t.MedicoID)
	if outcome != bus.Processed {
		return outcome
	}

	vars := map[string]string{
		"pacienteNombre": paciente.NombreCompleto(),
		"medicoNombre":   medico.NombreCompleto(),
		"especialidad":   medico.Especialidad,
		"fecha":          formatearFecha(t.Fecha),
		"hora":           t.Hora,
	}
	if f, err := time.Parse("2006-01-02", t.Fecha); err == nil {
		vars["diaSemana"] = turnos.DiaSemanaLabel(int(f.Weekday()))
	}
	for k, v := range extra {
		vars[k] = v
	}

	type destino struct {
		canal        Canal
		destinatario string
	}
	destinos := make([]destino, 0, 2)
	if paciente.Email != "" {
		destinos = append(destinos, destino{CanalEmail, paciente.Email})
	}
	if paciente.Telefono != "" {
		destinos = append(destinos, destino{CanalSMS, paciente.Telefono})
	}
	if len(destinos) == 0 {
		d.log.Info("paciente sin datos de contacto, nada para enviar", map[string]any{
			"pacienteId": paciente.ID,
			"turnoId":    t.ID,
		})
		return bus.Processed
	}

	// Los envíos por canal son efectos independientes: corren en paralelo.
	var wg sync.WaitGroup
	resultados := make([]resultadoCanal, len(destinos))
	for i, dest := range destinos {
		wg.Add(1)
		go func(i int, dest destino) {
			defer wg.Done()
			resultados[i] = resultadoCanal{
				notificacion: d.enviarPorCanal(ctx, tipo, dest.canal, dest.destinatario, vars, paciente.ID, medico.ID, t.ID, eventoID),
			}
		}(i, dest)
	}
	wg.Wait()

	// Ack recién después de que cada registro quedó escrito: si el storage
	// falla acá, el evento se reencola y el upsert absorbe el duplicado.
	for _, res := range resultados {
		if _, err := d.notifs.Guardar(ctx, res.notificacion); err != nil {
			d.log.Error("no se pudo persistir notificación", map[string]any{
				"turnoId": t.ID,
				"canal":   string(res.notificacion.Canal),
				"err":     err.Error(),
			})
			return bus.Retry
		}
	}

	return bus.Processed
}

// enviarPorCanal arma y envía la notificación de un canal. Nunca devuelve
// error: cualquier falla queda reflejada en el registro (estado FALLIDO).
func (d *Dispatcher) enviarPorCanal(ctx context.Context, tipo Tipo, canal Canal, destinatario string, vars map[string]string, pacienteID, medicoID, turnoID, eventoID string) Notificacion {
	now := d.now()
	n := Notificacion{
		ID:           d.newID(),
		Tipo:         tipo,
		Canal:        canal,
		Destinatario: destinatario,
		Estado:       EstadoFallido,
		Intentos:     1,
		PacienteID:   pacienteID,
		MedicoID:     medicoID,
		TurnoID:      turnoID,
		EventoID:     eventoID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	plantilla, err := d.plantillas.FindByTipoCanal(ctx, tipo, canal)
	if err != nil {
		n.Error = err.Error()
		return n
	}

	rendered, err := plantilla.Render(vars)
	if err != nil {
		n.Error = err.Error()
		return n
	}
	n.Asunto = rendered.Asunto
	n.Contenido = rendered.Contenido

	sender, ok := d.senders[canal]
	if !ok {
		n.Error = "canal sin transporte configurado: " + string(canal)
		return n
	}

	if err := sender.Send(ctx, destinatario, rendered.Asunto, rendered.Contenido); err != nil {
		n.Error = err.Error()
		return n
	}

	n.Estado = EstadoEnviado
	n.Error = ""
	return n
}

func (d *Dispatcher) resolverPaciente(ctx context.Context, id string) (directory.Paciente, bus.Outcome) {
	lctx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
	defer cancel()

	p, err := d.pacientes.GetPaciente(lctx, id)
	if err == nil {
		return p, bus.Processed
	}
	if errors.Is(err, directory.ErrNoEncontrado) {
		d.log.Error("paciente inexistente referido por evento", map[string]any{"pacienteId": id})
		return directory.Paciente{}, bus.Poison
	}
	d.log.Warn("lookup de paciente falló, se reintenta", map[string]any{"pacienteId": id, "err": err.Error()})
	return directory.Paciente{}, bus.Retry
}

func (d *Dispatcher) resolverMedico(ctx context.Context, id string) (directory.Medico, bus.Outcome) {
	lctx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
	defer cancel()

	m, err := d.medicos.GetMedico(lctx, id)
	if err == nil {
		return m, bus.Processed
	}
	if errors.Is(err, directory.ErrNoEncontrado) {
		d.log.Error("médico inexistente referido por evento", map[string]any{"medicoId": id})
		return directory.Medico{}, bus.Poison
	}
	d.log.Warn("lookup de médico falló, se reintenta", map[string]any{"medicoId": id, "err": err.Error()})
	return directory.Medico{}, bus.Retry
}

// formatearFecha pasa YYYY-MM-DD a DD/MM/YYYY para las plantillas.
func formatearFecha(fecha string) string {
	t, err := time.Parse("2006-01-02", fecha)
	if err != nil {
		return fecha
	}
	return t.Format("02/01/2006")
}
