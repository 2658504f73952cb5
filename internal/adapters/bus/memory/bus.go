// Package memory implementa un bus de eventos en proceso para
// desarrollo y tests. Entrega sincrónica, sin reintentos.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/ascastro2/proyecto-3-arquitectura/internal/ports/bus"
)

type suscripcion struct {
	patron  string
	handler bus.Handler
}

type Bus struct {
	mu   sync.RWMutex
	subs []suscripcion
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registra un handler para las keys que matcheen el patrón.
// El patrón admite "*" como comodín de un segmento, igual que un
// binding topic de AMQP ("turno.*" matchea "turno.creado").
func (b *Bus) Subscribe(patron string, handler bus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, suscripcion{patron: patron, handler: handler})
}

func (b *Bus) Publish(ctx context.Context, e bus.Event) error {
	b.mu.RLock()
	subs := make([]suscripcion, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if matchea(s.patron, e.Key) {
			s.handler(ctx, e)
		}
	}
	return nil
}

func matchea(patron, key string) bool {
	ps := strings.Split(patron, ".")
	ks := strings.Split(key, ".")
	if len(ps) != len(ks) {
		return false
	}
	for i := range ps {
		if ps[i] != "*" && ps[i] != ks[i] {
			return false
		}
	}
	return true
}
