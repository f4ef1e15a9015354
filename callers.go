package connpool

import "context"

// callerKey is the context key a Pool uses to recognize a caller across
// nested Borrow calls. A rewrite of a thread-local has no goroutine-local
// equivalent in Go, so identity is carried explicitly: Borrow returns a
// derived context carrying a fresh token the first time, and callers that
// want nested borrows to reuse the same Connection must pass that
// returned context down the call stack.
type callerKey struct{}

type callerToken struct{}

// withCaller returns ctx unchanged if it already carries a caller token,
// or a derived context carrying a fresh one. The bool reports whether a
// token was already present (i.e. whether this is a nested borrow).
func withCaller(ctx context.Context) (context.Context, *callerToken, bool) {
	if tok, ok := ctx.Value(callerKey{}).(*callerToken); ok {
		return ctx, tok, true
	}
	tok := &callerToken{}
	return context.WithValue(ctx, callerKey{}, tok), tok, false
}

func callerOf(ctx context.Context) (*callerToken, bool) {
	tok, ok := ctx.Value(callerKey{}).(*callerToken)
	return tok, ok
}
