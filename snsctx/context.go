// Package snsctx carries per-call flags through context.
package snsctx

import "context"

type verboseKey struct{}

// IsVerbose reports whether bus traffic should be traced for this call.
func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(verboseKey{}).(bool)
	return v
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, verboseKey{}, value)
}
