// Package admin guards back-office endpoints with a bcrypt-hashed token.
package admin

import (
	"log/slog"
	"net/http"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
	"immersion/pkg/platform/httputil"
	"immersion/pkg/requestcontext"
	"immersion/pkg/secrets"
)

// TokenHeader carries the admin token.
const TokenHeader = "X-Admin-Token"

// RequireAdminToken verifies the token against its bcrypt hash and tags the
// request with the back-office admin actor. An empty hash locks the surface.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if tokenHash == "" || token == "" || secrets.Verify(token, tokenHash) != nil {
				logger.WarnContext(r.Context(), "admin token mismatch",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorContext{
				Role:  id.RoleBackOfficeAdmin,
				Email: r.Header.Get("X-Admin-Email"),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
