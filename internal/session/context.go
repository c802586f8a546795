package session

import "context"

type contextKey struct{}

type bound struct {
	id    string
	store Store
}

// NewContext attaches the browser session id and its Store to ctx.
func NewContext(ctx context.Context, id string, store Store) context.Context {
	return context.WithValue(ctx, contextKey{}, bound{id: id, store: store})
}

// FromContext returns the Store attached by NewContext.
func FromContext(ctx context.Context) (Store, bool) {
	b, ok := ctx.Value(contextKey{}).(bound)
	if !ok || b.store == nil {
		return nil, false
	}
	return b.store, true
}

// IDFromContext returns the browser session id, or "" outside a request.
func IDFromContext(ctx context.Context) string {
	b, _ := ctx.Value(contextKey{}).(bound)
	return b.id
}

type renewKey struct{}

// Renewer starts a replacement session for the current request. commit makes
// it the browser's session and discards the old one.
type Renewer func() (id string, store Store, commit func())

// WithRenewer attaches r so Renew can rotate the session id.
func WithRenewer(ctx context.Context, r Renewer) context.Context {
	return context.WithValue(ctx, renewKey{}, r)
}

// Renew returns ctx bound to a fresh session id and store, and the commit
// that adopts it. Without a Renewer the current binding is kept and commit
// does nothing. store is nil when ctx carries no session at all.
func Renew(ctx context.Context) (context.Context, Store, func()) {
	r, ok := ctx.Value(renewKey{}).(Renewer)
	if !ok || r == nil {
		store, _ := FromContext(ctx)
		return ctx, store, func() {}
	}
	id, store, commit := r()
	return NewContext(ctx, id, store), store, commit
}
