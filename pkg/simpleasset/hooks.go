package simpleasset

import "context"

// Transaction-commit hooks. Work that must only happen after the surrounding
// transaction commits (e.g. enqueueing derivative jobs) is registered with
// AfterCommit; the transaction runner installs a registry with WithCommitHooks
// and fires it via RunCommitHooks once the commit succeeds. When no registry
// is installed the callback runs immediately, so non-transactional callers
// behave the same.

type commitHooksKey struct{}

type commitHooks struct {
	fns []func(context.Context)
}

// WithCommitHooks returns a child context carrying a fresh hook registry.
func WithCommitHooks(ctx context.Context) context.Context {
	return context.WithValue(ctx, commitHooksKey{}, &commitHooks{})
}

// AfterCommit schedules fn to run after the surrounding transaction commits.
// Without an active registry on ctx, fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if h, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn(ctx)
}

// RunCommitHooks fires every registered callback in registration order and
// clears the registry. Call only after a successful commit.
func RunCommitHooks(ctx context.Context) {
	h, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		return
	}
	fns := h.fns
	h.fns = nil
	for _, fn := range fns {
		fn(ctx)
	}
}
