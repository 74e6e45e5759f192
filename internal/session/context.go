package session

import (
	"context"
	"strings"
)

type userContextKey struct{}

// ContextWithUser stores the displayed user identity in the context.
func ContextWithUser(ctx context.Context, user string) context.Context {
	user = strings.TrimSpace(user)
	if user == "" {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the user identity attached by ContextWithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
