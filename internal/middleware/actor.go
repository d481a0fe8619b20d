package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ContextKey string

const ActorKey ContextKey = "actor"

// ActorHeader names the operator issuing a command. It is recorded on
// corrections and is not an authentication mechanism.
const ActorHeader = "X-Actor-ID"

const anonymousActor = "anonymous"

func LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func ActorFromContext(ctx context.Context) string {
	actor, ok := ctx.Value(ActorKey).(string)
	if !ok || actor == "" {
		return anonymousActor
	}
	return actor
}
