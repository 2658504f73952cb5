package main

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	membus "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/bus/memory"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/bus/rabbit"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/directory/rest"
	pg "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/storage/postgres"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/config"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.NewFromEnv()

	var db *sql.DB
	if cfg.DBDSN != "" {
		opened, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("no se pudo conectar a postgres", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		db = opened
		defer db.Close()
	} else {
		log.Warn("DB_DSN vacío, usando repos in-memory", nil)
	}

	var publisher bus.Publisher
	if cfg.RabbitURL != "" {
		p, err := rabbit.NewPublisher(cfg.RabbitURL, turnos.Exchange)
		if err != nil {
			log.Error("no se pudo conectar a rabbitmq", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	} else {
		log.Warn("RABBITMQ_URL vacío, usando bus in-memory", nil)
		publisher = membus.NewBus()
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

	r := router.NewRouter(router.Options{
		Pacientes: pacientes,
		Medicos:   medicos,
		Publisher: publisher,
		Logger:    log,
		DB:        db,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("api de agendamiento escuchando", map[string]any{"port": cfg.Port})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
}
