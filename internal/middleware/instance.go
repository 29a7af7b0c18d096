package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/csie-vote/voting-web/internal/state"
)

type contextKey string

const instanceKey contextKey = "instance"

// instanceIDKey is the session key holding the client instance id.
const instanceIDKey = "instance_id"

// LoadInstance attaches the browser session's client instance to the request
// context, creating one on the first visit. It must run inside
// sm.LoadAndSave.
func LoadInstance(sm *scs.SessionManager, reg *state.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := sm.GetString(ctx, instanceIDKey)
			if id == "" {
				id = uuid.NewString()
				sm.Put(ctx, instanceIDKey, id)
			}

			ctx = context.WithValue(ctx, instanceKey, reg.Get(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InstanceFromContext returns the client instance attached by LoadInstance.
func InstanceFromContext(ctx context.Context) (*state.Instance, bool) {
	inst, ok := ctx.Value(instanceKey).(*state.Instance)
	return inst, ok
}
