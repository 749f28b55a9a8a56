package identity

import "context"

// Principal is the authenticated caller, extracted from the JWT by Middleware.
type Principal struct {
	ID       string // canonical candidate id
	Username string
	Admin    bool
}

func (p Principal) Owner() Owner {
	return Owner{ID: p.ID, LegacyName: p.Username}
}

// Owner identifies who a record belongs to. Historical rows were written with
// only the raw username; newer rows carry the structured id. Both variants are
// kept so queries can match either, but every new write sets ID.
type Owner struct {
	ID         string
	LegacyName string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
