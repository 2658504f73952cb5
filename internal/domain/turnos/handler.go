package turnos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/turnos", func(tr chi.Router) {
		tr.Post("/", crearTurnoHandler(svc))
		tr.Get("/", listarTurnosHandler(svc))

		tr.Get("/paciente/{pacienteID}", listarPorPacienteHandler(svc))
		tr.Get("/medico/{medicoID}", listarPorMedicoHandler(svc))
		tr.Get("/estado/{estado}", listarPorEstadoHandler(svc))
		tr.Get("/fecha/{fecha}", listarPorFechaHandler(svc))

		tr.Get("/{turnoID}", getTurnoHandler(svc))
		tr.Put("/{turnoID}", modificarTurnoHandler(svc))
		tr.Get("/{turnoID}/historial", historialHandler(svc))

		tr.Patch("/{turnoID}/confirmar", transicionHandler(svc, accionConfirmar))
		tr.Patch("/{turnoID}/cancelar", cancelarTurnoHandler(svc))
		tr.Patch("/{turnoID}/completar", transicionHandler(svc, accionCompletar))
		tr.Patch("/{turnoID}/no-show", transicionHandler(svc, accionNoShow))
	})
}

// crearTurnoRequest es el cuerpo para agendar un turno nuevo.
type crearTurnoRequest struct {
	PacienteID    string `json:"pacienteId"`
	MedicoID      string `json:"medicoId"`
	Fecha         string `json:"fecha"` // YYYY-MM-DD
	Hora          string `json:"hora"`  // HH:MM (24h)
	DiaSemana     int    `json:"diaSemana"`
	Motivo        string `json:"motivo"`
	Observaciones string `json:"observaciones"`
}

type modificarTurnoRequest struct {
	PacienteID    *string `json:"pacienteId"`
	MedicoID      *string `json:"medicoId"`
	Fecha         *string `json:"fecha"`
	Hora          *string `json:"hora"`
	DiaSemana     *int    `json:"diaSemana"`
	Motivo        *string `json:"motivo"`
	Observaciones *string `json:"observaciones"`
}

type cancelarTurnoRequest struct {
	Motivo string `json:"motivo"`
}

// turnoResponse representa un turno devuelto por la API.
type turnoResponse struct {
	ID            string    `json:"id"`
	PacienteID    string    `json:"pacienteId"`
	MedicoID      string    `json:"medicoId"`
	Fecha         string    `json:"fecha"`
	Hora          string    `json:"hora"`
	DiaSemana     int       `json:"diaSemana"`
	DiaSemanaNom  string    `json:"diaSemanaNombre"`
	Estado        Estado    `json:"estado"`
	EstadoLabel   string    `json:"estadoLabel"`
	Motivo        string    `json:"motivo,omitempty"`
	Observaciones string    `json:"observaciones,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// historialResponse representa un registro del historial de cambios.
type historialResponse struct {
	ID          string     `json:"id"`
	TurnoID     string     `json:"turnoId"`
	TipoCambio  TipoCambio `json:"tipoCambio"`
	Descripcion string     `json:"descripcion"`
	UsuarioID   string     `json:"usuarioId,omitempty"`
	Antes       *Snapshot  `json:"antes"`
	Despues     *Snapshot  `json:"despues"`
	ChangedAt   time.Time  `json:"changedAt"`
}

// crearTurnoHandler godoc
// @Summary Agendar un turno
// @Description Crea un turno en estado PENDIENTE. Valida fecha/hora futuras, coincidencia del día de la semana, ventana de atención (08:00–18:00) y disponibilidad del médico (±30 min). El actor se toma del header `X-Actor-ID`.
// @Tags turnos
// @Accept json
// @Produce json
// @Param X-Actor-ID header string false "ID del usuario que origina el cambio"
// @Param payload body crearTurnoRequest true "Datos del turno; fecha YYYY-MM-DD, hora HH:MM"
// @Success 201 {object} turnoResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 404 {string} string "paciente o médico inexistente"
// @Failure 409 {string} string "slot ocupado"
// @Failure 502 {string} string "servicio externo no disponible"
// @Router /turnos [post]
func crearTurnoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req crearTurnoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		fecha, err := time.Parse(formatoFecha, req.Fecha)
		if err != nil {
			http.Error(w, "fecha debe ser YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		actor, _ := middleware.GetActor(r.Context())

		t, err := svc.Crear(r.Context(), CrearInput{
			PacienteID:    req.PacienteID,
			MedicoID:      req.MedicoID,
			Fecha:         fecha,
			Hora:          req.Hora,
			DiaSemana:     req.DiaSemana,
			Motivo:        req.Motivo,
			Observaciones: req.Observaciones,
			UsuarioID:     actor.UserID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTurnoResponse(t))
	}
}

// modificarTurnoHandler godoc
// @Summary Modificar un turno
// @Description Actualiza campos de un turno PENDIENTE o CONFIRMADO. Si cambia médico/fecha/hora se rechequea disponibilidad excluyendo el propio turno.
// @Tags turnos
// @Accept json
// @Produce json
// @Param X-Actor-ID header string false "ID del usuario que origina el cambio"
// @Param turnoID path string true "ID del turno"
// @Param payload body modificarTurnoRequest true "Campos a modificar (todos opcionales)"
// @Success 200 {object} turnoResponse
// @Failure 400 {string} string "datos inválidos"
// @Failure 404 {string} string "turno, paciente o médico inexistente"
// @Failure 409 {string} string "estado terminal o slot ocupado"
// @Router /turnos/{turnoID} [put]
func modificarTurnoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req modificarTurnoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := ModificarInput{
			PacienteID:    req.PacienteID,
			MedicoID:      req.MedicoID,
			Hora:          req.Hora,
			DiaSemana:     req.DiaSemana,
			Motivo:        req.Motivo,
			Observaciones: req.Observaciones,
		}
		if req.Fecha != nil {
			fecha, err := time.Parse(formatoFecha, *req.Fecha)
			if err != nil {
				http.Error(w, "fecha debe ser YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.Fecha = &fecha
		}

		actor, _ := middleware.GetActor(r.Context())
		in.UsuarioID = actor.UserID

		t, err := svc.Modificar(r.Context(), chi.URLParam(r, "turnoID"), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTurnoResponse(t))
	}
}

// cancelarTurnoHandler godoc
// @Summary Cancelar un turno
// @Description Cancela un turno PENDIENTE o CONFIRMADO. El motivo es obligatorio y queda registrado en el historial y en el evento publicado.
// @Tags turnos
// @Accept json
// @Produce json
// @Param X-Actor-ID header string false "ID del usuario que origina el cambio"
// @Param turnoID path string true "ID del turno"
// @Param payload body cancelarTurnoRequest true "Motivo de la cancelación"
// @Success 200 {object} turnoResponse
// @Failure 400 {string} string "motivo faltante"
// @Failure 404 {string} string "turno inexistente"
// @Failure 409 {string} string "turno ya cancelado / completado / no-show"
// @Router /turnos/{turnoID}/cancelar [patch]
func cancelarTurnoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelarTurnoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		actor, _ := middleware.GetActor(r.Context())

		t, err := svc.Cancelar(r.Context(), chi.URLParam(r, "turnoID"), req.Motivo, actor.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTurnoResponse(t))
	}
}

type accion int

const (
	accionConfirmar accion = iota
	accionCompletar
	accionNoShow
)

// transicionHandler cubre las transiciones sin body (confirmar, completar,
// no-show); comparten forma y solo difieren en la operación del service.
func transicionHandler(svc *Service, a accion) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())
		id := chi.URLParam(r, "turnoID")

		var (
			t   Turno
			err error
		)
		switch a {
		case accionConfirmar:
			t, err = svc.Confirmar(r.Context(), id, actor.UserID)
		case accionCompletar:
			t, err = svc.Completar(r.Context(), id, actor.UserID)
		case accionNoShow:
			t, err = svc.MarcarNoShow(r.Context(), id, actor.UserID)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTurnoResponse(t))
	}
}

// historialHandler godoc
// @Summary Historial de cambios de un turno
// @Description Devuelve el historial append-only del turno, más reciente primero, con snapshots before/after por transición.
// @Tags turnos
// @Produce json
// @Param turnoID path string true "ID del turno"
// @Success 200 {array} historialResponse
// @Failure 404 {string} string "turno inexistente"
// @Router /turnos/{turnoID}/historial [get]
func historialHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cambios, err := svc.Historial(r.Context(), chi.URLParam(r, "turnoID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]historialResponse, 0, len(cambios))
		for _, h := range cambios {
			out = append(out, historialResponse{
				ID:          h.ID,
				TurnoID:     h.TurnoID,
				TipoCambio:  h.TipoCambio,
				Descripcion: h.Descripcion,
				UsuarioID:   h.UsuarioID,
				Antes:       h.Antes,
				Despues:     h.Despues,
				ChangedAt:   h.ChangedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTurnoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetByID(r.Context(), chi.URLParam(r, "turnoID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTurnoResponse(t))
	}
}

func listarTurnosHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listar(w, r, svc, ListFilter{})
	}
}

func listarPorPacienteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listar(w, r, svc, ListFilter{PacienteID: chi.URLParam(r, "pacienteID")})
	}
}

func listarPorMedicoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listar(w, r, svc, ListFilter{MedicoID: chi.URLParam(r, "medicoID")})
	}
}

func listarPorEstadoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listar(w, r, svc, ListFilter{Estado: Estado(strings.ToUpper(chi.URLParam(r, "estado")))})
	}
}

func listarPorFechaHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fecha, err := time.Parse(formatoFecha, chi.URLParam(r, "fecha"))
		if err != nil {
			http.Error(w, "fecha debe ser YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		listar(w, r, svc, ListFilter{Fecha: &fecha})
	}
}

func listar(w http.ResponseWriter, r *http.Request, svc *Service, filter ListFilter) {
	filter.Limit = parseLimit(r)

	items, err := svc.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]turnoResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTurnoResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}

func toTurnoResponse(t Turno) turnoResponse {
	return turnoResponse{
		ID:            t.ID,
		PacienteID:    t.PacienteID,
		MedicoID:      t.MedicoID,
		Fecha:         t.Fecha.Format(formatoFecha),
		Hora:          t.Hora,
		DiaSemana:     t.DiaSemana,
		DiaSemanaNom:  DiaSemanaLabel(t.DiaSemana),
		Estado:        t.Estado,
		EstadoLabel:   t.Estado.Label(),
		Motivo:        t.Motivo,
		Observaciones: t.Observaciones,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidacion):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoEncontrado):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrTransicionInvalida), errors.Is(err, ErrSlotOcupado):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrUpstream):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
