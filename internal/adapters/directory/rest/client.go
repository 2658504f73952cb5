// Package rest implementa los clientes HTTP contra los microservicios
// de pacientes, médicos y agendamiento. Pacientes y médicos responden
// con el envelope {success, data, message}; agendamiento responde el
// recurso directo.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/httpclient"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/directory"
)

const (
	// reintentos extra ante fallas transitorias (timeout, 5xx)
	maxReintentos = 2
	esperaBase    = 200 * time.Millisecond
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// getJSON hace GET con reintentos y mapea errores al contrato del port:
// 404 => ErrNoEncontrado, el resto => ErrUpstream.
func getJSON(ctx context.Context, c *httpclient.Client, path string, out any) error {
	var lastErr error

	for intento := 0; intento <= maxReintentos; intento++ {
		if intento > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", directory.ErrUpstream, ctx.Err())
			case <-time.After(esperaBase * time.Duration(intento)):
			}
		}

		err := c.DoJSON(ctx, http.MethodGet, path, nil, nil, out)
		if err == nil {
			return nil
		}

		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusNotFound {
				return directory.ErrNoEncontrado
			}
			if httpErr.StatusCode < http.StatusInternalServerError {
				// 4xx distinto de 404 no se reintenta
				return fmt.Errorf("%w: status=%d", directory.ErrUpstream, httpErr.StatusCode)
			}
		}

		lastErr = err
	}

	return fmt.Errorf("%w: %v", directory.ErrUpstream, lastErr)
}

// getEnvelope hace GET sobre un servicio que envuelve la respuesta en
// {success, data, message} y decodifica data en out.
func getEnvelope(ctx context.Context, c *httpclient.Client, path string, out any) error {
	var env envelope
	if err := getJSON(ctx, c, path, &env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", directory.ErrUpstream, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: respuesta inválida: %v", directory.ErrUpstream, err)
	}
	return nil
}
