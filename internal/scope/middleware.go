// internal/scope/middleware.go
package scope

import (
	"context"
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"tenantcore/internal/auth"
	"tenantcore/internal/metrics"
)

// Middleware wraps tenant-scoped routes: when the resolver produced a tenant,
// the downstream handler runs inside one transaction with that tenant bound.
// Anonymous requests and tenantless users pass through unbound; row security
// then yields empty reads and rejects writes.
func Middleware(db *sql.DB, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFrom(r.Context())
			if id == nil || id.Tenant == nil {
				next.ServeHTTP(w, r)
				return
			}

			tenantID := id.Tenant.ID
			tw := &trackedWriter{ResponseWriter: w}
			err := WithTenantScope(r.Context(), db, &tenantID, func(ctx context.Context) error {
				metrics.ScopedRequests.WithLabelValues(tenantID.String()).Inc()
				next.ServeHTTP(tw, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				log.Errorw("tenant scope failed", "tenant", tenantID, "path", r.URL.Path, "error", err)
				// Once the handler has started the response we cannot
				// retract it; anything written belongs to a rolled-back
				// transaction, so the failure is logged instead.
				if !tw.wrote {
					http.Error(tw, "internal error", http.StatusInternalServerError)
				}
			}
		})
	}
}

// trackedWriter records whether anything reached the client, so a late scope
// failure does not stack a second status line onto a committed response.
type trackedWriter struct {
	http.ResponseWriter
	wrote bool
}

func (t *trackedWriter) WriteHeader(code int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackedWriter) Write(b []byte) (int, error) {
	t.wrote = true
	return t.ResponseWriter.Write(b)
}
