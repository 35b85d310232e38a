package tools

import "context"

// sessionIDKey is an unexported context key type.
type sessionIDKey struct{}

// SessionIDFromContext retrieves the chat session ID from ctx, or "" when
// unset. Tool handlers use it to scope profile updates to the conversation
// that triggered them.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// ContextWithSessionID stores the chat session ID in ctx. The chat layer
// injects it before generation so tool calls inherit it.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}
