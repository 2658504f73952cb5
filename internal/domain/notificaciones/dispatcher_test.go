package notificaciones

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"
)

// -------------------------
// Fakes
// -------------------------

type testNotifsRepo struct {
	porClave map[string]Notificacion
	fail     bool
}

func newTestNotifsRepo() *testNotifsRepo {
	return &testNotifsRepo{porClave: map[string]Notificacion{}}
}

func (r *testNotifsRepo) Guardar(ctx context.Context, n Notificacion) (Notificacion, error) {
	if r.fail {
		return Notificacion{}, errors.New("storage caído")
	}
	clave := n.EventoID + "|" + string(n.Canal)
	if prev, ok := r.porClave[clave]; ok {
		n.ID = prev.ID
		n.CreatedAt = prev.CreatedAt
		n.Intentos = prev.Intentos + 1
	}
	r.porClave[clave] = n
	return n, nil
}

func (r *testNotifsRepo) ListByTurno(ctx context.Context, turnoID string) ([]Notificacion, error) {
	out := make([]Notificacion, 0)
	for _, n := range r.porClave {
		if n.TurnoID == turnoID {
			out = append(out, n)
		}
	}
	return out, nil
}

type testPlantillasRepo struct {
	porClave map[string]Plantilla
}

func newTestPlantillasRepo() *testPlantillasRepo {
	r := &testPlantillasRepo{porClave: map[string]Plantilla{}}

	r.agregar(Plantilla{
		Tipo: TipoAgendamiento, Canal: CanalEmail, Activa: true,
		Asunto:    "Cita agendada - {{fecha}}",
		Contenido: "{{pacienteNombre}}: cita con {{medicoNombre}} el {{fecha}} a las {{hora}}",
		Variables: []string{"pacienteNombre", "medicoNombre", "fecha", "hora"},
	})
	r.agregar(Plantilla{
		Tipo: TipoAgendamiento, Canal: CanalSMS, Activa: true,
		Contenido: "Cita {{fecha}} {{hora}} con {{medicoNombre}}",
		Variables: []string{"fecha", "hora", "medicoNombre"},
	})
	r.agregar(Plantilla{
		Tipo: TipoCancelacion, Canal: CanalEmail, Activa: true,
		Asunto:    "Cita cancelada",
		Contenido: "{{pacienteNombre}}: su cita del {{fecha}} fue cancelada. Motivo: {{motivo}}",
		Variables: []string{"pacienteNombre", "fecha", "motivo"},
	})
	r.agregar(Plantilla{
		Tipo: TipoCancelacion, Canal: CanalSMS, Activa: true,
		Contenido: "Cita del {{fecha}} cancelada. Motivo: {{motivo}}",
		Variables: []string{"fecha", "motivo"},
	})
	r.agregar(Plantilla{
		Tipo: TipoModificacion, Canal: CanalEmail, Activa: true,
		Asunto:    "Cita reprogramada",
		Contenido: "Antes: {{fechaAnterior}} {{horaAnterior}}. Ahora: {{fechaNueva}} {{horaNueva}}",
		Variables: []string{"fechaAnterior", "horaAnterior", "fechaNueva", "horaNueva"},
	})
	r.agregar(Plantilla{
		Tipo: TipoModificacion, Canal: CanalSMS, Activa: true,
		Contenido: "Cita movida a {{fechaNueva}} {{horaNueva}}",
		Variables: []string{"fechaNueva", "horaNueva"},
	})
	r.agregar(Plantilla{
		Tipo: TipoRecordatorio, Canal: CanalEmail, Activa: true,
		Asunto:    "Recordatorio de cita",
		Contenido: "{{pacienteNombre}}: mañana {{fecha}} a las {{hora}} con {{medicoNombre}}",
		Variables: []string{"pacienteNombre", "fecha", "hora", "medicoNombre"},
	})
	r.agregar(Plantilla{
		Tipo: TipoRecordatorio, Canal: CanalSMS, Activa: true,
		Contenido: "Recordatorio: {{fecha}} {{hora}}",
		Variables: []string{"fecha", "hora"},
	})

	return r
}

func (r *testPlantillasRepo) agregar(p Plantilla) {
	r.porClave[string(p.Tipo)+"|"+string(p.Canal)] = p
}

func (r *testPlantillasRepo) borrar(tipo Tipo, canal Canal) {
	delete(r.porClave, string(tipo)+"|"+string(canal))
}

func (r *testPlantillasRepo) FindByTipoCanal(ctx context.Context, tipo Tipo, canal Canal) (Plantilla, error) {
	p, ok := r.porClave[string(tipo)+"|"+string(canal)]
	if !ok {
		return Plantilla{}, ErrPlantillaNoEncontrada
	}
	return p, nil
}

type testDirectory struct {
	pacientes map[string]directory.Paciente
	medicos   map[string]directory.Medico
	turnosDia []directory.Turno
	caido     bool
}

func (d *testDirectory) GetPaciente(ctx context.Context, id string) (directory.Paciente, error) {
	if d.caido {
		return directory.Paciente{}, directory.ErrUpstream
	}
	p, ok := d.pacientes[id]
	if !ok {
		return directory.Paciente{}, directory.ErrNoEncontrado
	}
	return p, nil
}

func (d *testDirectory) GetMedico(ctx context.Context, id string) (directory.Medico, error) {
	if d.caido {
		return directory.Medico{}, directory.ErrUpstream
	}
	m, ok := d.medicos[id]
	if !ok {
		return directory.Medico{}, directory.ErrNoEncontrado
	}
	return m, nil
}

func (d *testDirectory) GetTurno(ctx context.Context, id string) (directory.Turno, error) {
	for _, t := range d.turnosDia {
		if t.ID == id {
			return t, nil
		}
	}
	return directory.Turno{}, directory.ErrNoEncontrado
}

func (d *testDirectory) TurnosPorFecha(ctx context.Context, fecha string) ([]directory.Turno, error) {
	if d.caido {
		return nil, directory.ErrUpstream
	}
	return d.turnosDia, nil
}

type testSender struct {
	canal  Canal
	envios []string
	fail   bool
}

func (s *testSender) Canal() Canal { return s.canal }

func (s *testSender) Send(ctx context.Context, destinatario, asunto, contenido string) error {
	if s.fail {
		return errors.New("smtp rechazó el mensaje")
	}
	s.envios = append(s.envios, destinatario)
	return nil
}

// -------------------------
// Helpers
// -------------------------

type testEnv struct {
	dispatcher *Dispatcher
	notifs     *testNotifsRepo
	plantillas *testPlantillasRepo
	dir        *testDirectory
	email      *testSender
	sms        *testSender
}

func newTestEnv() *testEnv {
	notifs := newTestNotifsRepo()
	plantillas := newTestPlantillasRepo()
	dir := &testDirectory{
		pacientes: map[string]directory.Paciente{
			"pac-1": {ID: "pac-1", Nombre: "Juan", Apellido: "Pérez", Email: "juan@example.com", Telefono: "+56911111111"},
		},
		medicos: map[string]directory.Medico{
			"med-1": {ID: "med-1", Nombre: "Ana", Apellido: "Soto", Especialidad: "Cardiología"},
		},
	}
	email := &testSender{canal: CanalEmail}
	sms := &testSender{canal: CanalSMS}

	d := NewDispatcher(DispatcherOptions{
		Notificaciones: notifs,
		Plantillas:     plantillas,
		Pacientes:      dir,
		Medicos:        dir,
		Agenda:         dir,
		Senders:        []Sender{email, sms},
		Logger:         logger.New(logger.Options{Level: logger.Error}),
	})

	return &testEnv{dispatcher: d, notifs: notifs, plantillas: plantillas, dir: dir, email: email, sms: sms}
}

func eventoDeTurno(t *testing.T, key, tipo string, mutate func(*turnos.Evento)) bus.Event {
	t.Helper()

	evt := turnos.Evento{
		Tipo: tipo,
		Turno: turnos.Snapshot{
			ID:         "turno-1",
			PacienteID: "pac-1",
			MedicoID:   "med-1",
			Fecha:      "2025-03-10",
			Hora:       "14:00",
			Estado:     turnos.EstadoPendiente,
		},
	}
	if mutate != nil {
		mutate(&evt)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal evento: %v", err)
	}
	return bus.Event{
		ID:         "evt-1",
		Key:        key,
		OccurredAt: time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC),
		Payload:    payload,
	}
}

// -------------------------
// Handle
// -------------------------

func TestDispatcher_TurnoCreado_NotificaPorAmbosCanales(t *testing.T) {
	env := newTestEnv()

	outcome := env.dispatcher.Handle(context.Background(), eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil))
	if outcome != bus.Processed {
		t.Fatalf("expected Processed, got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	if len(regs) != 2 {
		t.Fatalf("expected 2 notificaciones (email + sms), got %d", len(regs))
	}
	for _, n := range regs {
		if n.Estado != EstadoEnviado {
			t.Fatalf("expected ENVIADO, got %s (%s)", n.Estado, n.Canal)
		}
		if n.Intentos != 1 {
			t.Fatalf("expected 1 intento, got %d", n.Intentos)
		}
		if n.EventoID != "evt-1" {
			t.Fatalf("expected eventoId evt-1, got %s", n.EventoID)
		}
	}

	if len(env.email.envios) != 1 || env.email.envios[0] != "juan@example.com" {
		t.Fatalf("expected envío de email a juan@example.com, got %v", env.email.envios)
	}
	if len(env.sms.envios) != 1 || env.sms.envios[0] != "+56911111111" {
		t.Fatalf("expected sms al teléfono del paciente, got %v", env.sms.envios)
	}
}

func TestDispatcher_FechaSeFormateaParaPlantillas(t *testing.T) {
	env := newTestEnv()

	_ = env.dispatcher.Handle(context.Background(), eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil))

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	for _, n := range regs {
		if n.Canal == CanalEmail && !strings.Contains(n.Contenido, "10/03/2025") {
			t.Fatalf("expected fecha DD/MM/YYYY en el contenido, got %q", n.Contenido)
		}
	}
}

func TestDispatcher_PayloadIndecodificable_EsPoison(t *testing.T) {
	env := newTestEnv()

	e := bus.Event{ID: "evt-x", Key: turnos.KeyCreado, Payload: []byte("{no es json")}
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Poison {
		t.Fatalf("expected Poison, got %s", outcome)
	}
}

func TestDispatcher_RoutingKeyDesconocida_EsPoison(t *testing.T) {
	env := newTestEnv()

	e := eventoDeTurno(t, "turno.inventado", "TURNO_INVENTADO", nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Poison {
		t.Fatalf("expected Poison, got %s", outcome)
	}
}

func TestDispatcher_CompletadoYNoShow_NoNotifican(t *testing.T) {
	env := newTestEnv()

	for _, key := range []string{turnos.KeyCompletado, turnos.KeyNoShow} {
		e := eventoDeTurno(t, key, "TURNO_COMPLETADO", nil)
		if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
			t.Fatalf("expected Processed para %s, got %s", key, outcome)
		}
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	if len(regs) != 0 {
		t.Fatalf("expected 0 notificaciones, got %d", len(regs))
	}
}

func TestDispatcher_PacienteInexistente_EsPoison(t *testing.T) {
	env := newTestEnv()

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, func(evt *turnos.Evento) {
		evt.Turno.PacienteID = "pac-fantasma"
	})
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Poison {
		t.Fatalf("expected Poison, got %s", outcome)
	}
}

func TestDispatcher_DirectorioCaido_EsRetry(t *testing.T) {
	env := newTestEnv()
	env.dir.caido = true

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Retry {
		t.Fatalf("expected Retry, got %s", outcome)
	}
}

func TestDispatcher_StorageCaido_EsRetry(t *testing.T) {
	env := newTestEnv()
	env.notifs.fail = true

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Retry {
		t.Fatalf("expected Retry, got %s", outcome)
	}
}

func TestDispatcher_TransporteFalla_QuedaFallidoYSeAckea(t *testing.T) {
	env := newTestEnv()
	env.email.fail = true

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
		t.Fatalf("expected Processed (falla de transporte no reencola), got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	porCanal := map[Canal]Notificacion{}
	for _, n := range regs {
		porCanal[n.Canal] = n
	}

	if porCanal[CanalEmail].Estado != EstadoFallido || porCanal[CanalEmail].Error == "" {
		t.Fatalf("expected email FALLIDO con error, got %#v", porCanal[CanalEmail])
	}
	if porCanal[CanalSMS].Estado != EstadoEnviado {
		t.Fatalf("expected sms ENVIADO, got %s", porCanal[CanalSMS].Estado)
	}
}

func TestDispatcher_PlantillaFaltante_QuedaFallido(t *testing.T) {
	env := newTestEnv()
	env.plantillas.borrar(TipoAgendamiento, CanalSMS)

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
		t.Fatalf("expected Processed, got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	for _, n := range regs {
		if n.Canal == CanalSMS && n.Estado != EstadoFallido {
			t.Fatalf("expected sms FALLIDO por plantilla faltante, got %s", n.Estado)
		}
	}
}

func TestDispatcher_Redelivery_IncrementaIntentos(t *testing.T) {
	env := newTestEnv()

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	_ = env.dispatcher.Handle(context.Background(), e)
	_ = env.dispatcher.Handle(context.Background(), e)

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	if len(regs) != 2 {
		t.Fatalf("expected 2 registros (dedup por evento y canal), got %d", len(regs))
	}
	for _, n := range regs {
		if n.Intentos != 2 {
			t.Fatalf("expected 2 intentos tras redelivery, got %d", n.Intentos)
		}
	}
}

func TestDispatcher_Cancelacion_LlevaElMotivo(t *testing.T) {
	env := newTestEnv()

	e := eventoDeTurno(t, turnos.KeyCancelado, turnos.EventoTurnoCancelado, func(evt *turnos.Evento) {
		evt.Motivo = "Paciente de viaje"
	})
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
		t.Fatalf("expected Processed, got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	for _, n := range regs {
		if !strings.Contains(n.Contenido, "Paciente de viaje") {
			t.Fatalf("expected motivo en el contenido, got %q", n.Contenido)
		}
	}
}

func TestDispatcher_Modificacion_LlevaFechaAnteriorYNueva(t *testing.T) {
	env := newTestEnv()

	e := eventoDeTurno(t, turnos.KeyModificado, turnos.EventoTurnoModificado, func(evt *turnos.Evento) {
		antes := evt.Turno
		antes.Fecha = "2025-03-11"
		antes.Hora = "10:00"
		evt.Antes = &antes
	})
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
		t.Fatalf("expected Processed, got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	for _, n := range regs {
		if n.Canal != CanalEmail {
			continue
		}
		if !strings.Contains(n.Contenido, "11/03/2025") || !strings.Contains(n.Contenido, "10:00") {
			t.Fatalf("expected fecha/hora anteriores en el contenido, got %q", n.Contenido)
		}
		if !strings.Contains(n.Contenido, "10/03/2025") || !strings.Contains(n.Contenido, "14:00") {
			t.Fatalf("expected fecha/hora nuevas en el contenido, got %q", n.Contenido)
		}
	}
}

func TestDispatcher_PacienteSinContacto_NoEnviaNada(t *testing.T) {
	env := newTestEnv()
	env.dir.pacientes["pac-1"] = directory.Paciente{ID: "pac-1", Nombre: "Juan", Apellido: "Pérez"}

	e := eventoDeTurno(t, turnos.KeyCreado, turnos.EventoTurnoCreado, nil)
	if outcome := env.dispatcher.Handle(context.Background(), e); outcome != bus.Processed {
		t.Fatalf("expected Processed, got %s", outcome)
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	if len(regs) != 0 {
		t.Fatalf("expected 0 notificaciones sin datos de contacto, got %d", len(regs))
	}
}

// -------------------------
// Recordatorios
// -------------------------

func TestDispatcher_EnviarRecordatorios(t *testing.T) {
	env := newTestEnv()
	env.dir.turnosDia = []directory.Turno{
		{ID: "turno-1", PacienteID: "pac-1", MedicoID: "med-1", Fecha: "2025-03-11", Hora: "09:00", Estado: "PENDIENTE"},
		{ID: "turno-2", PacienteID: "pac-1", MedicoID: "med-1", Fecha: "2025-03-11", Hora: "11:00", Estado: "CONFIRMADO"},
		{ID: "turno-3", PacienteID: "pac-1", MedicoID: "med-1", Fecha: "2025-03-11", Hora: "15:00", Estado: "CANCELADO"},
	}

	if err := env.dispatcher.EnviarRecordatorios(context.Background(), "2025-03-11"); err != nil {
		t.Fatalf("EnviarRecordatorios error: %v", err)
	}

	for _, id := range []string{"turno-1", "turno-2"} {
		regs, _ := env.notifs.ListByTurno(context.Background(), id)
		if len(regs) != 2 {
			t.Fatalf("expected 2 recordatorios para %s, got %d", id, len(regs))
		}
		for _, n := range regs {
			if n.Tipo != TipoRecordatorio {
				t.Fatalf("expected tipo RECORDATORIO, got %s", n.Tipo)
			}
		}
	}

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-3")
	if len(regs) != 0 {
		t.Fatalf("expected 0 recordatorios para turno cancelado, got %d", len(regs))
	}
}

func TestDispatcher_EnviarRecordatorios_CorridaDuplicadaNoDuplicaRegistros(t *testing.T) {
	env := newTestEnv()
	env.dir.turnosDia = []directory.Turno{
		{ID: "turno-1", PacienteID: "pac-1", MedicoID: "med-1", Fecha: "2025-03-11", Hora: "09:00", Estado: "PENDIENTE"},
	}

	_ = env.dispatcher.EnviarRecordatorios(context.Background(), "2025-03-11")
	_ = env.dispatcher.EnviarRecordatorios(context.Background(), "2025-03-11")

	regs, _ := env.notifs.ListByTurno(context.Background(), "turno-1")
	if len(regs) != 2 {
		t.Fatalf("expected 2 registros (uno por canal) tras doble corrida, got %d", len(regs))
	}
	for _, n := range regs {
		if n.Intentos != 2 {
			t.Fatalf("expected intentos 2 por la corrida duplicada, got %d", n.Intentos)
		}
	}
}

func TestDispatcher_EnviarRecordatorios_AgendaCaida(t *testing.T) {
	env := newTestEnv()
	env.dir.caido = true

	err := env.dispatcher.EnviarRecordatorios(context.Background(), "2025-03-11")
	if err == nil {
		t.Fatalf("expected error con la agenda caída")
	}
	if !errors.Is(err, directory.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
