// Package tracer is a small tracing abstraction over OpenTelemetry so the auth
// paths can emit spans without importing otel APIs everywhere.
package tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is an OpenTelemetry key-value pair.
type Attribute = attribute.KeyValue

func String(key, value string) Attribute { return attribute.String(key, value) }

func Bool(key string, value bool) Attribute { return attribute.Bool(key, value) }

func Int64(key string, value int64) Attribute { return attribute.Int64(key, value) }

// Duration records value in whole milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return attribute.Int64(key, value.Milliseconds())
}

// Span names.
const (
	SpanLogin         = "auth.login"
	SpanLogout        = "auth.logout"
	SpanAuthorize     = "auth.authorize"
	SpanForceRevoke   = "auth.force_revoke"
	SpanTenantResolve = "tenant.resolve"
)

// Attribute keys. Never attach tokens, secrets or user codes.
const (
	AttrTenantScope = "tenant.scope"
	AttrSessionID   = "session.id"
	AttrUserID      = "user.id"
	AttrResult      = "result"
	AttrReason      = "reason"
	AttrRevoked     = "revoked.count"
)

// Event names.
const (
	EventSessionCreated = "session.created"
	EventTokenRevoked   = "token.revoked"
)
