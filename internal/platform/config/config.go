package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config reúne toda la configuración de los procesos (api y notificador).
// Se arma una vez en main y se inyecta; ningún componente lee env por su cuenta.
type Config struct {
	Port string

	// Postgres. Vacío => repos in-memory (modo dev).
	DBDSN string

	// RabbitMQ. Vacío => bus in-memory (modo dev, sin fanout real).
	RabbitURL string

	// URLs de los servicios externos de directorio.
	PacientesServiceURL    string
	MedicosServiceURL      string
	AgendamientoServiceURL string

	// Timeout para lookups externos (pacientes/medicos/agenda).
	LookupTimeout time.Duration

	// Cron spec del job de recordatorios (formato robfig/cron).
	RecordatorioCron string
}

// Load carga .env si existe (no es error que falte) y arma la Config desde env.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                   getenv("PORT", "8080"),
		DBDSN:                  os.Getenv("DB_DSN"),
		RabbitURL:              os.Getenv("RABBITMQ_URL"),
		PacientesServiceURL:    getenv("PACIENTES_SERVICE_URL", "http://localhost:3001"),
		MedicosServiceURL:      getenv("MEDICOS_SERVICE_URL", "http://localhost:3002"),
		AgendamientoServiceURL: getenv("AGENDAMIENTO_SERVICE_URL", "http://localhost:8080"),
		LookupTimeout:          getenvDuration("LOOKUP_TIMEOUT_SECONDS", 5*time.Second),
		RecordatorioCron:       getenv("RECORDATORIO_CRON", "0 9 * * *"),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
