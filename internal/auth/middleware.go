// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tenantcore/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller: the user record, plus its tenant when the
// user belongs to one. A request with no identity at all is anonymous.
type Identity struct {
	User   *model.User
	Tenant *model.Tenant
}

// IdentityLoader looks up the user named by a token and, when the user has a
// tenant, the tenant record.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID uuid.UUID) (*model.User, *model.Tenant, error)
}

// ResolveContext returns middleware that turns bearer credentials into an
// Identity on the request context. No Authorization header means the request
// proceeds anonymously; that is a valid state, not a failure. A structurally
// invalid token is rejected with 401. A valid token naming an unknown user
// resolves to anonymous (the identity is stale, not forged).
func ResolveContext(loader IdentityLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "invalid Authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, tenant, err := loader.LoadIdentity(r.Context(), userID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{User: user, Tenant: tenant})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity attaches a resolved identity to the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the resolved identity, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *Identity {
	if val := ctx.Value(identityKey); val != nil {
		return val.(*Identity)
	}
	return nil
}
