package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	membus "github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/bus/memory"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/adapters/directory/rest"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
)

// directorioFalso simula los microservicios de pacientes y médicos con su
// envelope {success, data, message}.
func directorioFalso(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		escribir := func(data any) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    data,
				"message": "ok",
			})
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/api/pacientes/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/pacientes/")
			if id != "pac-1" {
				http.Error(w, "paciente no encontrado", http.StatusNotFound)
				return
			}
			escribir(map[string]any{
				"id": "pac-1", "nombre": "Juan", "apellido": "Pérez",
				"email": "juan@example.com", "telefono": "+56911111111",
			})
		case strings.HasPrefix(r.URL.Path, "/api/medicos/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/medicos/")
			if id != "med-1" {
				http.Error(w, "médico no encontrado", http.StatusNotFound)
				return
			}
			escribir(map[string]any{
				"id": "med-1", "nombre": "Ana", "apellido": "Soto", "especialidad": "Cardiología",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("DB_DSN", "")

	dir := directorioFalso(t)

	pacientes, err := rest.NewPacientesClient(dir.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewPacientesClient error: %v", err)
	}
	medicos, err := rest.NewMedicosClient(dir.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewMedicosClient error: %v", err)
	}

	h := NewRouter(Options{
		Pacientes: pacientes,
		Medicos:   medicos,
		Publisher: membus.NewBus(),
		Logger:    logger.New(logger.Options{Level: logger.Error}),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// proximoLunes devuelve un lunes futuro en YYYY-MM-DD.
func proximoLunes() string {
	d := time.Now().UTC().AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func doJSON(t *testing.T, method, url string, body map[string]any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func crearTurno(t *testing.T, base string, hora string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	resp, out := doJSON(t, http.MethodPost, base+"/api/turnos", map[string]any{
		"pacienteId": "pac-1",
		"medicoId":   "med-1",
		"fecha":      proximoLunes(),
		"hora":       hora,
		"diaSemana":  1,
		"motivo":     "Control",
	}, headers)
	return resp.StatusCode, out
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_CrearYLeerTurno(t *testing.T) {
	srv := newTestServer(t)

	status, creado := crearTurno(t, srv.URL, "14:00", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, creado)
	}
	if creado["estado"] != "PENDIENTE" {
		t.Fatalf("expected estado PENDIENTE, got %v", creado["estado"])
	}
	id, _ := creado["id"].(string)
	if id == "" {
		t.Fatalf("expected id en la respuesta, got %v", creado)
	}

	resp, leido := doJSON(t, http.MethodGet, srv.URL+"/api/turnos/"+id, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if leido["hora"] != "14:00" {
		t.Fatalf("expected hora 14:00, got %v", leido["hora"])
	}
}

func TestRouter_TurnoInexistente_404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/turnos/no-existe", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRouter_DobleReserva_409(t *testing.T) {
	srv := newTestServer(t)

	if status, _ := crearTurno(t, srv.URL, "14:00", nil); status != http.StatusCreated {
		t.Fatalf("primer turno: expected 201, got %d", status)
	}
	if status, _ := crearTurno(t, srv.URL, "14:15", nil); status != http.StatusConflict {
		t.Fatalf("segundo turno a 15 min: expected 409, got %d", status)
	}
	if status, _ := crearTurno(t, srv.URL, "14:30", nil); status != http.StatusCreated {
		t.Fatalf("turno a 30 min: expected 201, got %d", status)
	}
}

func TestRouter_PacienteInexistente_404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/turnos", map[string]any{
		"pacienteId": "pac-fantasma",
		"medicoId":   "med-1",
		"fecha":      proximoLunes(),
		"hora":       "14:00",
		"diaSemana":  1,
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRouter_ValidacionDeDomingo_400(t *testing.T) {
	srv := newTestServer(t)

	// el día siguiente al lunes de prueba que sea domingo
	d, _ := time.Parse("2006-01-02", proximoLunes())
	domingo := d.AddDate(0, 0, 6).Format("2006-01-02")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/turnos", map[string]any{
		"pacienteId": "pac-1",
		"medicoId":   "med-1",
		"fecha":      domingo,
		"hora":       "10:00",
		"diaSemana":  0,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouter_CicloDeVidaCompleto(t *testing.T) {
	srv := newTestServer(t)

	_, creado := crearTurno(t, srv.URL, "14:00", map[string]string{"X-Actor-ID": "recepcion-1"})
	id := creado["id"].(string)

	// confirmar
	resp, conf := doJSON(t, http.MethodPatch, srv.URL+"/api/turnos/"+id+"/confirmar", nil, nil)
	if resp.StatusCode != http.StatusOK || conf["estado"] != "CONFIRMADO" {
		t.Fatalf("confirmar: expected 200 CONFIRMADO, got %d %v", resp.StatusCode, conf["estado"])
	}

	// confirmar de nuevo: transición inválida
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/turnos/"+id+"/confirmar", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("segunda confirmación: expected 409, got %d", resp.StatusCode)
	}

	// completar
	resp, comp := doJSON(t, http.MethodPatch, srv.URL+"/api/turnos/"+id+"/completar", nil, nil)
	if resp.StatusCode != http.StatusOK || comp["estado"] != "COMPLETADO" {
		t.Fatalf("completar: expected 200 COMPLETADO, got %d %v", resp.StatusCode, comp["estado"])
	}

	// modificar un turno terminal: 409
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/turnos/"+id, map[string]any{"hora": "15:00"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("modificar completado: expected 409, got %d", resp.StatusCode)
	}

	// historial: CREACION + CONFIRMACION + COMPLETADO, más reciente primero
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/turnos/"+id+"/historial", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("historial: expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_Cancelar(t *testing.T) {
	srv := newTestServer(t)

	_, creado := crearTurno(t, srv.URL, "14:00", nil)
	id := creado["id"].(string)

	// sin motivo: 400
	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/api/turnos/"+id+"/cancelar", map[string]any{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("cancelar sin motivo: expected 400, got %d", resp.StatusCode)
	}

	resp, canc := doJSON(t, http.MethodPatch, srv.URL+"/api/turnos/"+id+"/cancelar", map[string]any{
		"motivo": "Paciente de viaje",
	}, nil)
	if resp.StatusCode != http.StatusOK || canc["estado"] != "CANCELADO" {
		t.Fatalf("cancelar: expected 200 CANCELADO, got %d %v", resp.StatusCode, canc["estado"])
	}

	// el slot quedó libre
	if status, _ := crearTurno(t, srv.URL, "14:00", nil); status != http.StatusCreated {
		t.Fatalf("slot tras cancelación: expected 201, got %d", status)
	}
}

func TestRouter_HistorialLlevaElActor(t *testing.T) {
	srv := newTestServer(t)

	_, creado := crearTurno(t, srv.URL, "14:00", map[string]string{"X-Actor-ID": "recepcion-7"})
	id := creado["id"].(string)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/turnos/"+id+"/historial", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET historial error: %v", err)
	}
	defer resp.Body.Close()

	var hist []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&hist); err != nil {
		t.Fatalf("decode historial: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected 1 registro, got %d", len(hist))
	}
	if hist[0]["usuarioId"] != "recepcion-7" {
		t.Fatalf("expected usuarioId recepcion-7, got %v", hist[0]["usuarioId"])
	}
	if hist[0]["tipoCambio"] != "CREACION" {
		t.Fatalf("expected CREACION, got %v", hist[0]["tipoCambio"])
	}
}

func TestRouter_ListadosPorFiltro(t *testing.T) {
	srv := newTestServer(t)

	for i, hora := range []string{"09:00", "10:00", "11:00"} {
		if status, _ := crearTurno(t, srv.URL, hora, nil); status != http.StatusCreated {
			t.Fatalf("turno %d: expected 201, got %d", i, status)
		}
	}

	casos := []string{
		"/api/turnos",
		"/api/turnos/paciente/pac-1",
		"/api/turnos/medico/med-1",
		"/api/turnos/estado/PENDIENTE",
		fmt.Sprintf("/api/turnos/fecha/%s", proximoLunes()),
	}
	for _, path := range casos {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s error: %v", path, err)
		}
		var lista []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&lista); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if len(lista) != 3 {
			t.Fatalf("GET %s: expected 3 turnos, got %d", path, len(lista))
		}
	}
}
