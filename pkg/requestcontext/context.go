// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Values are set by middleware but consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, actor)
package requestcontext

import (
	"context"
	"time"

	id "immersion/pkg/domain"
)

// ActorContext identifies who is performing the current request: either an
// agency-side user authenticated upstream, or a convention party resolved
// from a magic link scoped to one convention.
type ActorContext struct {
	Role         id.Role
	Email        string
	UserID       id.UserID
	ConventionID id.ConventionID // non-nil only for magic-link actors
}

// IsMagicLink reports whether the actor was resolved from a convention-scoped
// magic link rather than a regular authenticated session.
func (a ActorContext) IsMagicLink() bool {
	return !a.ConventionID.IsNil()
}

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor retrieves the acting identity from the context.
// Returns the zero value if not set.
func Actor(ctx context.Context) ActorContext {
	if a, ok := ctx.Value(actorKey{}).(ActorContext); ok {
		return a
	}
	return ActorContext{}
}

// WithActor injects the acting identity into the context.
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI).
// This is the injected clock: services must never call time.Now() directly,
// so tests and batch jobs get deterministic timestamps.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need one consistent time across a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
