package shared

import (
	"context"
	"strings"
)

// Actor identifies the caller of a ledger operation and the scopes it holds.
type Actor struct {
	ID          int64
	Permissions map[string]struct{}
}

// NewActor builds an actor from a list of scopes.
func NewActor(id int64, scopes []string) Actor {
	perms := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope != "" {
			perms[scope] = struct{}{}
		}
	}
	return Actor{ID: id, Permissions: perms}
}

// Can reports whether the actor holds the permission.
func (a Actor) Can(perm string) bool {
	_, ok := a.Permissions[perm]
	return ok
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
