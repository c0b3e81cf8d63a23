package devserver

import "context"

type usernameKey struct{}

func withUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

func usernameFrom(ctx context.Context) string {
	if u, ok := ctx.Value(usernameKey{}).(string); ok {
		return u
	}
	return ""
}
