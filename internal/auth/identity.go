package auth

import "context"

// Identity is the verified caller, produced once by the auth middleware and
// handed to services as an explicit parameter.
type Identity struct {
	UserID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
