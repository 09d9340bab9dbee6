package server

import (
	"context"

	"github.com/mnehpets/capsuledash/session"
)

type contextKey int

const credentialsKey contextKey = iota

func withCredentials(ctx context.Context, creds session.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// credentialsFromContext retrieves the validated session credentials placed
// there by requireSession.
func credentialsFromContext(ctx context.Context) (session.Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(session.Credentials)
	return creds, ok
}
