package turnos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"

	"github.com/google/uuid"
)

// publishTimeout acota el intento de publicación post-commit para no
// colgar la respuesta HTTP si el broker está caído.
const publishTimeout = 2 * time.Second

// Service es la máquina de estados de turnos. Toda mutación pasa por acá:
// valida la transición, chequea disponibilidad cuando corresponde, persiste
// turno + historial en una unidad atómica y publica el evento best-effort.
type Service struct {
	repo      Repository
	disp      *Disponibilidad
	pacientes directory.Pacientes
	medicos   directory.Medicos
	publisher bus.Publisher
	log       logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, disp *Disponibilidad, pacientes directory.Pacientes, medicos directory.Medicos, publisher bus.Publisher, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		disp:      disp,
		pacientes: pacientes,
		medicos:   medicos,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type CrearInput struct {
	PacienteID    string
	MedicoID      string
	Fecha         time.Time
	Hora          string
	DiaSemana     int
	Motivo        string
	Observaciones string

	// UsuarioID vacío = acción del sistema.
	UsuarioID string
}

// Crear registra un turno nuevo en PENDIENTE.
func (s *Service) Crear(ctx context.Context, in CrearInput) (Turno, error) {
	if strings.TrimSpace(in.PacienteID) == "" {
		return Turno{}, fmt.Errorf("%w: el ID del paciente es requerido", ErrValidacion)
	}
	if strings.TrimSpace(in.MedicoID) == "" {
		return Turno{}, fmt.Errorf("%w: el ID del médico es requerido", ErrValidacion)
	}

	if err := s.validarFechaHora(in.Fecha, in.Hora, in.DiaSemana); err != nil {
		return Turno{}, err
	}

	if err := s.verificarPaciente(ctx, in.PacienteID); err != nil {
		return Turno{}, err
	}
	if err := s.verificarMedico(ctx, in.MedicoID); err != nil {
		return Turno{}, err
	}

	libre, err := s.disp.EstaDisponible(ctx, in.MedicoID, in.Fecha, in.Hora, "")
	if err != nil {
		return Turno{}, err
	}
	if !libre {
		return Turno{}, ErrSlotOcupado
	}

	now := s.now()
	t := Turno{
		ID:            s.newID(),
		PacienteID:    strings.TrimSpace(in.PacienteID),
		MedicoID:      strings.TrimSpace(in.MedicoID),
		Fecha:         in.Fecha,
		Hora:          strings.TrimSpace(in.Hora),
		DiaSemana:     in.DiaSemana,
		Estado:        EstadoPendiente,
		Motivo:        strings.TrimSpace(in.Motivo),
		Observaciones: strings.TrimSpace(in.Observaciones),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	snap := t.Snapshot()
	h := HistorialCambio{
		ID:          s.newID(),
		TurnoID:     t.ID,
		TipoCambio:  CambioCreacion,
		Descripcion: "Turno creado",
		UsuarioID:   in.UsuarioID,
		Antes:       nil,
		Despues:     &snap,
		ChangedAt:   now,
	}

	// El pre-chequeo de arriba no alcanza ante concurrencia: si dos Crear
	// llegan al mismo slot, la restricción del storage decide y el adapter
	// devuelve ErrSlotOcupado.
	if err := s.repo.Create(ctx, t, h); err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyCreado, Evento{Tipo: EventoTurnoCreado, Turno: snap})
	return t, nil
}

type ModificarInput struct {
	PacienteID    *string
	MedicoID      *string
	Fecha         *time.Time
	Hora          *string
	DiaSemana     *int
	Motivo        *string
	Observaciones *string

	UsuarioID string
}

// Modificar actualiza campos de un turno PENDIENTE o CONFIRMADO sin cambiar
// su estado. Si cambia el slot (médico, fecha u hora) vuelve a chequear
// disponibilidad excluyendo el propio turno.
func (s *Service) Modificar(ctx context.Context, id string, in ModificarInput) (Turno, error) {
	existente, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Turno{}, err
	}
	if existente.Estado.Terminal() {
		return Turno{}, fmt.Errorf("%w: no se puede modificar un turno %s", ErrTransicionInvalida, strings.ToLower(string(existente.Estado)))
	}

	nuevo := existente
	if in.PacienteID != nil {
		nuevo.PacienteID = strings.TrimSpace(*in.PacienteID)
	}
	if in.MedicoID != nil {
		nuevo.MedicoID = strings.TrimSpace(*in.MedicoID)
	}
	if in.Fecha != nil {
		nuevo.Fecha = *in.Fecha
	}
	if in.Hora != nil {
		nuevo.Hora = strings.TrimSpace(*in.Hora)
	}
	if in.DiaSemana != nil {
		nuevo.DiaSemana = *in.DiaSemana
	}
	if in.Motivo != nil {
		nuevo.Motivo = strings.TrimSpace(*in.Motivo)
	}
	if in.Observaciones != nil {
		nuevo.Observaciones = strings.TrimSpace(*in.Observaciones)
	}

	if in.Fecha != nil || in.Hora != nil || in.DiaSemana != nil {
		if err := s.validarFechaHora(nuevo.Fecha, nuevo.Hora, nuevo.DiaSemana); err != nil {
			return Turno{}, err
		}
	}

	if in.PacienteID != nil && nuevo.PacienteID != existente.PacienteID {
		if err := s.verificarPaciente(ctx, nuevo.PacienteID); err != nil {
			return Turno{}, err
		}
	}
	if in.MedicoID != nil && nuevo.MedicoID != existente.MedicoID {
		if err := s.verificarMedico(ctx, nuevo.MedicoID); err != nil {
			return Turno{}, err
		}
	}

	slotCambiado := nuevo.MedicoID != existente.MedicoID ||
		!nuevo.Fecha.Equal(existente.Fecha) ||
		nuevo.Hora != existente.Hora
	if slotCambiado {
		libre, err := s.disp.EstaDisponible(ctx, nuevo.MedicoID, nuevo.Fecha, nuevo.Hora, existente.ID)
		if err != nil {
			return Turno{}, err
		}
		if !libre {
			return Turno{}, ErrSlotOcupado
		}
	}

	now := s.now()
	nuevo.UpdatedAt = now

	antes := existente.Snapshot()
	despues := nuevo.Snapshot()
	h := HistorialCambio{
		ID:          s.newID(),
		TurnoID:     nuevo.ID,
		TipoCambio:  CambioModificacion,
		Descripcion: "Turno modificado",
		UsuarioID:   in.UsuarioID,
		Antes:       &antes,
		Despues:     &despues,
		ChangedAt:   now,
	}

	if err := s.repo.Update(ctx, nuevo, h); err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyModificado, Evento{Tipo: EventoTurnoModificado, Turno: despues, Antes: &antes})
	return nuevo, nil
}

// Cancelar pasa un turno PENDIENTE o CONFIRMADO a CANCELADO. El motivo es
// obligatorio y queda en el turno, el historial y el evento.
func (s *Service) Cancelar(ctx context.Context, id, motivo, usuarioID string) (Turno, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return Turno{}, fmt.Errorf("%w: el motivo de cancelación es requerido", ErrValidacion)
	}

	existente, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Turno{}, err
	}
	switch existente.Estado {
	case EstadoCancelado:
		return Turno{}, fmt.Errorf("%w: el turno ya está cancelado", ErrTransicionInvalida)
	case EstadoCompletado:
		return Turno{}, fmt.Errorf("%w: no se puede cancelar un turno completado", ErrTransicionInvalida)
	case EstadoNoShow:
		return Turno{}, fmt.Errorf("%w: no se puede cancelar un turno con no-show", ErrTransicionInvalida)
	}

	nuevo := existente
	nuevo.Estado = EstadoCancelado
	nuevo.Motivo = motivo

	t, err := s.transicionar(ctx, existente, nuevo, CambioCancelacion, "Turno cancelado: "+motivo, usuarioID)
	if err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyCancelado, Evento{Tipo: EventoTurnoCancelado, Turno: t.Snapshot(), Motivo: motivo})
	return t, nil
}

// Confirmar pasa un turno PENDIENTE a CONFIRMADO.
func (s *Service) Confirmar(ctx context.Context, id, usuarioID string) (Turno, error) {
	existente, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Turno{}, err
	}
	if existente.Estado != EstadoPendiente {
		return Turno{}, fmt.Errorf("%w: solo se pueden confirmar turnos pendientes", ErrTransicionInvalida)
	}

	nuevo := existente
	nuevo.Estado = EstadoConfirmado

	t, err := s.transicionar(ctx, existente, nuevo, CambioConfirmacion, "Turno confirmado", usuarioID)
	if err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyConfirmado, Evento{Tipo: EventoTurnoConfirmado, Turno: t.Snapshot()})
	return t, nil
}

// Completar pasa un turno CONFIRMADO a COMPLETADO.
func (s *Service) Completar(ctx context.Context, id, usuarioID string) (Turno, error) {
	existente, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Turno{}, err
	}
	if existente.Estado != EstadoConfirmado {
		return Turno{}, fmt.Errorf("%w: solo se pueden completar turnos confirmados", ErrTransicionInvalida)
	}

	nuevo := existente
	nuevo.Estado = EstadoCompletado

	t, err := s.transicionar(ctx, existente, nuevo, CambioCompletado, "Turno marcado como completado", usuarioID)
	if err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyCompletado, Evento{Tipo: EventoTurnoCompletado, Turno: t.Snapshot()})
	return t, nil
}

// MarcarNoShow pasa un turno CONFIRMADO a NO_SHOW.
func (s *Service) MarcarNoShow(ctx context.Context, id, usuarioID string) (Turno, error) {
	existente, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Turno{}, err
	}
	if existente.Estado != EstadoConfirmado {
		return Turno{}, fmt.Errorf("%w: solo se pueden marcar como no-show turnos confirmados", ErrTransicionInvalida)
	}

	nuevo := existente
	nuevo.Estado = EstadoNoShow

	t, err := s.transicionar(ctx, existente, nuevo, CambioNoShow, "Turno marcado como no-show", usuarioID)
	if err != nil {
		return Turno{}, err
	}

	s.publicar(ctx, KeyNoShow, Evento{Tipo: EventoTurnoNoShow, Turno: t.Snapshot()})
	return t, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Turno, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Turno{}, fmt.Errorf("%w: ID de turno inválido", ErrValidacion)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Turno, error) {
	if filter.Estado != "" && !filter.Estado.Valido() {
		return nil, fmt.Errorf("%w: estado de turno inválido", ErrValidacion)
	}
	return s.repo.List(ctx, filter)
}

// Historial devuelve los cambios del turno, más reciente primero.
func (s *Service) Historial(ctx context.Context, turnoID string) ([]HistorialCambio, error) {
	if _, err := s.repo.GetByID(ctx, turnoID); err != nil {
		return nil, err
	}
	return s.repo.Historial(ctx, turnoID)
}

// transicionar aplica una transición ya validada: sella UpdatedAt, arma el
// registro de historial con before/after y persiste ambos atómicamente.
func (s *Service) transicionar(ctx context.Context, antes, despues Turno, tipo TipoCambio, descripcion, usuarioID string) (Turno, error) {
	now := s.now()
	despues.UpdatedAt = now

	snapAntes := antes.Snapshot()
	snapDespues := despues.Snapshot()
	h := HistorialCambio{
		ID:          s.newID(),
		TurnoID:     despues.ID,
		TipoCambio:  tipo,
		Descripcion: descripcion,
		UsuarioID:   usuarioID,
		Antes:       &snapAntes,
		Despues:     &snapDespues,
		ChangedAt:   now,
	}

	if err := s.repo.Update(ctx, despues, h); err != nil {
		return Turno{}, err
	}
	return despues, nil
}

func (s *Service) validarFechaHora(fecha time.Time, hora string, diaSemana int) error {
	if fecha.IsZero() {
		return fmt.Errorf("%w: la fecha es requerida", ErrValidacion)
	}

	minutos, err := parseHora(hora)
	if err != nil {
		return err
	}
	if minutos < aperturaMinutos || minutos > cierreMinutos {
		return fmt.Errorf("%w: la hora debe estar entre 08:00 y 18:00", ErrValidacion)
	}

	if diaSemana != int(fecha.Weekday()) {
		return fmt.Errorf("%w: la fecha no coincide con el día de la semana especificado", ErrValidacion)
	}
	if fecha.Weekday() == diaNoLaborable {
		return fmt.Errorf("%w: no se atienden turnos los domingos", ErrValidacion)
	}

	fechaHora := time.Date(fecha.Year(), fecha.Month(), fecha.Day(), minutos/60, minutos%60, 0, 0, time.UTC)
	if !fechaHora.After(s.now().UTC()) {
		return fmt.Errorf("%w: la fecha y hora del turno deben ser futuras", ErrValidacion)
	}

	return nil
}

func (s *Service) verificarPaciente(ctx context.Context, id string) error {
	_, err := s.pacientes.GetPaciente(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, directory.ErrNoEncontrado) {
		return fmt.Errorf("%w: el paciente especificado no existe", ErrNoEncontrado)
	}
	return fmt.Errorf("%w: pacientes: %v", ErrUpstream, err)
}

func (s *Service) verificarMedico(ctx context.Context, id string) error {
	_, err := s.medicos.GetMedico(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, directory.ErrNoEncontrado) {
		return fmt.Errorf("%w: el médico especificado no existe", ErrNoEncontrado)
	}
	return fmt.Errorf("%w: medicos: %v", ErrUpstream, err)
}

// publicar emite el evento luego del commit. El fallo se loguea y se traga:
// el storage es la fuente de verdad, el bus es señal secundaria.
func (s *Service) publicar(ctx context.Context, key string, evt Evento) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("no se pudo serializar evento", map[string]any{"key": key, "err": err.Error()})
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	e := bus.Event{
		ID:         s.newID(),
		Key:        key,
		OccurredAt: s.now(),
		Payload:    payload,
	}
	if err := s.publisher.Publish(pctx, e); err != nil {
		s.log.Warn("publicación de evento falló", map[string]any{
			"key":     key,
			"turnoId": evt.Turno.ID,
			"err":     err.Error(),
		})
	}
}
