package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/socialnet/internal/common"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	usernameKey
)

// WithIdentity stores the authenticated user on ctx.
func WithIdentity(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(usernameKey).(string)
	return v, ok && v != ""
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// value. The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
