package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// OwnerHeader identifies the calling user. It is trusted as-is.
const OwnerHeader = "X-User-ID"

// maxOwnerIDLength rejects obviously malformed owner identifiers.
const maxOwnerIDLength = 256

// RequireOwner rejects requests without an X-User-ID header and stores
// the trimmed value in the request context.
func RequireOwner(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if ownerID == "" || len(ownerID) > maxOwnerIDLength {
				logger.Warn("owner identification failed",
					slog.String("reason", "missing_owner"),
					slog.String("endpoint", r.Method+" "+routePattern(r)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid "+OwnerHeader+" header")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), ownerID)))
		})
	}
}

// ContextWithOwner returns a context carrying ownerID.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerFromContext returns the owner stored by RequireOwner.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	return ownerID, ok && ownerID != ""
}
