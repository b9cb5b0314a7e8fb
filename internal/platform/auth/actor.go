package auth

import "context"

type contextKey string

const (
	actorKey contextKey = "actor"
	rolesKey contextKey = "roles"
)

// Actor is the staff member a request acts as. It stamps audit fields such
// as completed_by and the author of appended notes.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WithActor returns a context carrying actor and roles.
func WithActor(ctx context.Context, actor Actor, roles []string) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	return context.WithValue(ctx, rolesKey, roles)
}

// ActorFromContext reports the logged in actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok || a.ID == 0 {
		return Actor{}, false
	}
	return a, true
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey).([]string)
	return roles
}

// Session reads the actor from the request context. It is the session
// collaborator handed to workflows.
type Session struct{}

func (Session) CurrentActor(ctx context.Context) (Actor, bool) {
	return ActorFromContext(ctx)
}
