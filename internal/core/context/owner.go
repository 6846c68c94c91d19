package context

import (
	"context"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
)

// OwnerContext identifies the business account a request acts on behalf of.
// Every document, product and customer is scoped to exactly one owner.
type OwnerContext struct {
	OwnerID id.ID
	Subject string // token subject, e.g. staff member id
}

type ownerContextKey struct{}

// WithOwner adds OwnerContext to context.
func WithOwner(ctx context.Context, owner *OwnerContext) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// GetOwner returns OwnerContext from context.
func GetOwner(ctx context.Context) *OwnerContext {
	if v, ok := ctx.Value(ownerContextKey{}).(*OwnerContext); ok {
		return v
	}
	return nil
}

// GetOwnerID returns owner ID from context or id.Nil().
func GetOwnerID(ctx context.Context) id.ID {
	if o := GetOwner(ctx); o != nil {
		return o.OwnerID
	}
	return id.Nil()
}

// RequireOwnerID returns the owner from context or an unauthorized error.
func RequireOwnerID(ctx context.Context) (id.ID, error) {
	ownerID := GetOwnerID(ctx)
	if id.IsNil(ownerID) {
		return id.Nil(), apperror.NewUnauthorized("owner is not resolved")
	}
	return ownerID, nil
}
