package knot

import (
	"context"
)

// scopeContextKey is the key for storing the current scope in a context.
type scopeContextKey struct{}

// NewContext returns a context carrying the scope, for request-scoped
// resolution in handlers and middleware.
func NewContext(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// FromContext returns the scope carried by the context. It fails when no
// scope is attached or the attached scope has been disposed.
func FromContext(ctx context.Context) (Scope, error) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	if !ok || scope == nil {
		return nil, ErrScopeNotInContext
	}

	if scope.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	return scope, nil
}
