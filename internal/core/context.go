package core

import "context"

type contextKey string

const ctxKeyOwnerID contextKey = "owner_id"

// ContextWithOwnerID stores the authenticated owner on the context.
func ContextWithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKeyOwnerID, ownerID)
}

// OwnerIDFromContext returns the owner stored by ContextWithOwnerID.
func OwnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOwnerID).(string); ok {
		return v
	}
	return ""
}
