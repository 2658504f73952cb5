// Package logged implementa transportes de notificación que solo
// registran el envío en el log. Es el transporte por defecto en
// desarrollo, donde no hay SMTP ni gateway SMS configurados.
package logged

import (
	"context"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/domain/notificaciones"
	"github.com/ascastro2/proyecto-3-arquitectura/internal/platform/logger"
)

type Sender struct {
	canal notificaciones.Canal
	log   logger.Logger
}

func NewEmail(log logger.Logger) *Sender {
	return &Sender{canal: notificaciones.CanalEmail, log: log}
}

func NewSMS(log logger.Logger) *Sender {
	return &Sender{canal: notificaciones.CanalSMS, log: log}
}

func (s *Sender) Canal() notificaciones.Canal { return s.canal }

func (s *Sender) Send(ctx context.Context, destinatario, asunto, contenido string) error {
	s.log.Info("notificación enviada (simulada)", map[string]any{
		"canal":        string(s.canal),
		"destinatario": destinatario,
		"asunto":       asunto,
		"contenido":    contenido,
	})
	return nil
}
