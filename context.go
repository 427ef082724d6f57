package goSession

import "context"

type clientIPContextKey struct{}
type callerContextKey struct{}

// WithClientIP attaches the address of the consumer driving an operation.
// It is recorded in event metadata only.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithCaller names the surface that invoked an operation ("cli", "http",
// "watch"). It is recorded in event metadata and logs.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func callerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	caller, _ := ctx.Value(callerContextKey{}).(string)
	return caller
}
