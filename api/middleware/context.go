package middleware

import (
	"context"

	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as read from a verified access token.
type Identity struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Authorized bool
}

type identityKey struct{}

// WithIdentity stores the caller on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// ActorID is the caller's user id; nil for anonymous requests.
func ActorID(ctx context.Context) *uuid.UUID {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	userID := id.UserID
	return &userID
}
