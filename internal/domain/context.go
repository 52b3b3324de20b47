package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	accountIDKey contextKey = "account_id"
	sessionIDKey contextKey = "session_id"
)

// WithAccountID stores the account id in the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// GetAccountIDFromContext retrieves the account id, or "".
func GetAccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(accountIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID stores the session id in the context. The session id
// scopes every session-area store key.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionIDFromContext retrieves the session id, or "".
func GetSessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}
