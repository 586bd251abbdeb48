// Package actor resolves who is calling: a convention party holding a
// magic-link token, or an agency-side user authenticated upstream.
package actor

import (
	"log/slog"
	"net/http"
	"strings"

	"immersion/internal/magiclink"
	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/httputil"
	"immersion/pkg/requestcontext"
)

// Identity headers set by the upstream authentication proxy for agency-side
// users (counsellors, validators).
const (
	RoleHeader  = "X-Actor-Role"
	EmailHeader = "X-Actor-Email"
)

// Middleware resolves the acting identity and stores it in the context.
//
// A Bearer token is treated as a magic link: its claims pin the actor to one
// convention. Without a token, the proxy-set identity headers are used when
// present. Requests with neither carry the zero actor; entitlement checks
// downstream reject them where an identity is required.
func Middleware(links *magiclink.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				claims, err := links.Validate(token)
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				actor, err := actorFromClaims(claims)
				if err != nil {
					logger.WarnContext(r.Context(), "magic link carries invalid claims",
						"request_id", requestcontext.RequestID(r.Context()),
						"error", err,
					)
					httputil.WriteError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
				return
			}

			if rawRole := r.Header.Get(RoleHeader); rawRole != "" {
				role, err := id.ParseRole(rawRole)
				if err != nil {
					httputil.WriteError(w, err)
					return
				}
				ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorContext{
					Role:  role,
					Email: r.Header.Get(EmailHeader),
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func actorFromClaims(claims *magiclink.Claims) (requestcontext.ActorContext, error) {
	conventionID, err := id.ParseConventionID(claims.ConventionID)
	if err != nil {
		return requestcontext.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid link claims")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid link claims")
	}
	return requestcontext.ActorContext{
		Role:         role,
		Email:        claims.Email,
		ConventionID: conventionID,
	}, nil
}
