package kernel

import "context"

// Ambient Manager Registry (SPEC_FULL.md §4.4, C6).
//
// The teacher already has exactly the pattern this component needs, for a
// different payload: internal/ports.WithCorrelationID(ctx, id) /
// GetCorrelationID(ctx) attaches a value to a context.Context so downstream
// layers can read it without threading an extra parameter through every
// call. context.Context's value propagation already has the copy-on-spawn,
// no-leak-back semantics the distilled spec asks for from a ContextVar-style
// ambient slot: a context derived with WithManager carries the Manager to
// every call that receives that derived context (and anything it spawns),
// while the parent context — and any sibling derived from it — is
// untouched. There is nothing to "restore" on scope exit because nothing
// was ever mutated in place; the scope's lifetime is just the lifetime of
// holding the derived context.
type managerContextKey struct{}

// WithManager returns a context carrying mgr as the ambient manager. The
// returned context (and anything derived from it, including contexts
// passed to child goroutines) will resolve ManagerFrom to mgr; ctx itself,
// and any other context derived from it before this call, is unaffected.
func WithManager(ctx context.Context, mgr *Manager) context.Context {
	return context.WithValue(ctx, managerContextKey{}, mgr)
}

// ManagerFrom returns the ambient manager carried by ctx, if any.
func ManagerFrom(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(managerContextKey{}).(*Manager)
	return mgr, ok
}

// MustManagerFrom returns the ambient manager carried by ctx, or panics
// with a *CurrentManagerNotSetError if none was set. Typed Operation
// Handles declared at package scope use this to resolve "the current
// manager" the way original_source/ab_plugin_manager/abc.py's
// PluginManager.current() does (raises CurrentPluginManagerNotSetException
// when unset), rather than returning a zero value that would panic later
// with a less informative stack trace.
func MustManagerFrom(ctx context.Context) *Manager {
	mgr, ok := ManagerFrom(ctx)
	if !ok {
		panic(&CurrentManagerNotSetError{})
	}
	return mgr
}
