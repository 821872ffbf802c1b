// Package requestcontext carries request-scoped values (request id, request
// time, client metadata) through context.Context without leaking transport
// types into services.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey struct{}
	timeKey      struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	tenantKey    struct{}
)

// WithRequestID stores the correlation id for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id, or "" outside of an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock for
// workers, CLI commands and tests that never went through the middleware.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithClientMetadata stores the caller's IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTenantSignal stores the raw tenant signal (the x-tenant-subdomain header)
// exactly as received. Normalization belongs to the tenant resolver.
func WithTenantSignal(ctx context.Context, signal string) context.Context {
	return context.WithValue(ctx, tenantKey{}, signal)
}

func TenantSignal(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}
