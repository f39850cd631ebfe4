// Package usercontext carries the acting user's id through a request or
// message-handling context. The id originates at the gateway and crosses
// async boundaries inside the user-info message header.
package usercontext

import "context"

type userKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the acting user id, or false if none was attached.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
