package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/smartq/launchpad/pkg/composables"
)

// ActorResolver maps an incoming request to the authenticated actor. Identity
// and role assignment belong to the directory collaborator; the engine trusts
// whatever the resolver hands it.
type ActorResolver interface {
	Resolve(r *http.Request) (composables.Actor, error)
}

// HeaderActorResolver reads the actor from trusted gateway headers. It is the
// default resolver for deployments where an upstream proxy authenticates.
type HeaderActorResolver struct {
	IDHeader   string
	RoleHeader string
}

func (h HeaderActorResolver) Resolve(r *http.Request) (composables.Actor, error) {
	id, err := uuid.Parse(r.Header.Get(h.IDHeader))
	if err != nil {
		return composables.Actor{}, composables.ErrNoActor
	}
	role := r.Header.Get(h.RoleHeader)
	if role == "" {
		role = "user"
	}
	return composables.Actor{ID: id, Role: role}, nil
}

// ProvideActor resolves the actor once per request and stores it in the
// context. Requests without a resolvable actor still pass through; services
// reject them where authentication is actually required.
func ProvideActor(resolver ActorResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolver.Resolve(r)
			if err == nil {
				r = r.WithContext(composables.WithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}
