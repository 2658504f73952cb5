package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/storage/memory"
	pg "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/storage/postgres"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/turnos"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/middleware"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Pacientes directory.Pacientes
	Medicos   directory.Medicos
	Publisher bus.Publisher
	Logger    logger.Logger

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.ActorContext())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var turnosRepo turnos.Repository

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		turnosRepo = pg.NewTurnosRepo(db)
	} else {
		turnosRepo = mem.NewTurnosRepo()
	}

	disp := turnos.NewDisponibilidad(turnosRepo)
	svc := turnos.NewService(turnosRepo, disp, opts.Pacientes, opts.Medicos, opts.Publisher, opts.Logger)

	r.Route("/api", func(api chi.Router) {
		turnos.RegisterRoutes(api, svc)
	})

	return r
}
