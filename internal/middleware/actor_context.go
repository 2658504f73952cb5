package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const actorKey ctxKey = "actor"

// Actor identifica quién origina el cambio (para el campo usuarioId del
// historial). Vacío = request anónimo o iniciado por el sistema.
type Actor struct {
	UserID string
}

// ActorContext:
// - Header X-Actor-ID => setea el actor (la identidad real la resuelve el
//   gateway; este servicio solo la propaga al historial).
// - Sin header, el request sigue igual; los cambios quedan como del sistema.
func ActorContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := strings.TrimSpace(r.Header.Get("X-Actor-ID")); uid != "" {
				ctx := context.WithValue(r.Context(), actorKey, Actor{UserID: uid})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetActor(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
