package auth

import "context"

type ctxKey string

const ContextUserKey ctxKey = "user"

// UserFromContext returns the authenticated caller placed by the auth
// middleware. Identity is always explicit; nothing in the system reads
// an ambient current user.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
