package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/bus/rabbit"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/channels/logged"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/directory/rest"
	mem "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/storage/memory"
	pg "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/storage/postgres"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/config"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"

	"github.com/robfig/cron/v3"
)

const queueNotificaciones = "notificaciones.turnos"

func main() {
	cfg := config.Load()
	log := logger.NewFromEnv()

	if cfg.RabbitURL == "" {
		log.Error("RABBITMQ_URL es requerido para el notificador", nil)
		os.Exit(1)
	}

	var (
		db         *sql.DB
		notifsRepo notificaciones.NotificacionRepository
		plantillas notificaciones.PlantillaRepository
	)
	if cfg.DBDSN != "" {
		opened, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("no se pudo conectar a postgres", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		db = opened
		defer db.Close()
		notifsRepo = pg.NewNotificacionesRepo(db)
		plantillas = pg.NewPlantillasRepo(db)
	} else {
		log.Warn("DB_DSN vacío, usando repos in-memory", nil)
		notifsRepo = mem.NewNotificacionesRepo()
		plantillas = mem.NewPlantillasRepo()
	}

	pacientes, err := rest.NewPacientesClient(cfg.PacientesServiceURL, cfg.LookupTimeout)
	if err != nil {
		log.Error("url de pacientes inválida", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	medicos, err := rest.NewMedicosClient(cfg.MedicosServiceURL, cfg.LookupTimeout)
	if err != nil {
		log.Error("url de médicos inválida", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	agenda, err := rest.NewAgendaClient(cfg.AgendamientoServiceURL, cfg.LookupTimeout)
	if err != nil {
		log.Error("url de agendamiento inválida", map[string]any{"err": err.Error()})
		os.Exit(1)
	}

	dispatcher := notificaciones.NewDispatcher(notificaciones.DispatcherOptions{
		Notificaciones: notifsRepo,
		Plantillas:     plantillas,
		Pacientes:      pacientes,
		Medicos:        medicos,
		Agenda:         agenda,
		Senders:        []notificaciones.Sender{logged.NewEmail(log), logged.NewSMS(log)},
		Logger:         log,
		LookupTimeout:  cfg.LookupTimeout,
	})

	consumer, err := rabbit.NewConsumer(rabbit.ConsumerOptions{
		URL:      cfg.RabbitURL,
		Exchange: turnos.Exchange,
		Queue:    queueNotificaciones,
		Bind:     "turno.*",
		Logger:   log,
	})
	if err != nil {
		log.Error("no se pudo conectar a rabbitmq", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recordatorios del día siguiente, una corrida diaria.
	c := cron.New()
	_, err = c.AddFunc(cfg.RecordatorioCron, func() {
		fecha := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
		log.Info("enviando recordatorios", map[string]any{"fecha": fecha})
		if err := dispatcher.EnviarRecordatorios(ctx, fecha); err != nil {
			log.Error("corrida de recordatorios falló", map[string]any{"fecha": fecha, "err": err.Error()})
		}
	})
	if err != nil {
		log.Error("cron de recordatorios inválido", map[string]any{"spec": cfg.RecordatorioCron, "err": err.Error()})
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	log.Info("notificador escuchando eventos de turnos", map[string]any{"queue": queueNotificaciones})
	if err := consumer.Run(ctx, dispatcher.Handle); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer terminó con error", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
}
