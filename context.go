package coresem

import "context"

// threadContextKey is the context key under which a running Thread
// is stored.
type threadContextKey struct{}

func withThreadContext(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadContextKey{}, t)
}

// ThreadFromContext returns the thread whose body received ctx.
func ThreadFromContext(ctx context.Context) (*Thread, bool) {
	t, ok := ctx.Value(threadContextKey{}).(*Thread)
	return t, ok
}

// MustThreadFromContext is like ThreadFromContext but panics when ctx
// does not belong to a thread.
func MustThreadFromContext(ctx context.Context) *Thread {
	t, ok := ThreadFromContext(ctx)
	if !ok {
		panic("coresem: thread not found in context")
	}
	return t
}
