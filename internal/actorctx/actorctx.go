// Package actorctx carries the authenticated caller through context.Context
// so layers below the HTTP handlers can attribute work without taking a
// gin dependency.
package actorctx

import "context"

type userIDKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)

	return v, ok && v != ""
}
