package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tenantcore/internal/model"
)

type fakeLoader struct {
	users   map[uuid.UUID]*model.User
	tenants map[uuid.UUID]*model.Tenant
}

func (f *fakeLoader) LoadIdentity(_ context.Context, userID uuid.UUID) (*model.User, *model.Tenant, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, nil, nil
	}
	if u.TenantID == nil {
		return u, nil, nil
	}
	return u, f.tenants[*u.TenantID], nil
}

func resolveRequest(t *testing.T, loader IdentityLoader, authHeader string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()

	var got *Identity
	handler := ResolveContext(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, got
}

func TestResolveContext(t *testing.T) {
	SetSecret("test-secret")

	tenant := &model.Tenant{ID: uuid.New(), Name: "T1"}
	user := &model.User{ID: uuid.New(), Username: "alice", TenantID: &tenant.ID, Role: model.RoleOwner}
	loner := &model.User{ID: uuid.New(), Username: "bob", Role: model.RoleUser}

	loader := &fakeLoader{
		users:   map[uuid.UUID]*model.User{user.ID: user, loner.ID: loner},
		tenants: map[uuid.UUID]*model.Tenant{tenant.ID: tenant},
	}

	t.Run("no header resolves anonymous", func(t *testing.T) {
		rec, id := resolveRequest(t, loader, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, id)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		rec, _ := resolveRequest(t, loader, "Basic zzz")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		rec, _ := resolveRequest(t, loader, "Bearer not-a-token")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token resolves user and tenant", func(t *testing.T) {
		token, err := GenerateToken(user.ID.String())
		require.NoError(t, err)

		rec, id := resolveRequest(t, loader, "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, id)
		require.Equal(t, user.ID, id.User.ID)
		require.NotNil(t, id.Tenant)
		require.Equal(t, tenant.ID, id.Tenant.ID)
	})

	t.Run("tenantless user resolves without tenant", func(t *testing.T) {
		token, err := GenerateToken(loner.ID.String())
		require.NoError(t, err)

		rec, id := resolveRequest(t, loader, "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, id)
		require.Nil(t, id.Tenant)
	})

	t.Run("unknown user resolves anonymous", func(t *testing.T) {
		token, err := GenerateToken(uuid.NewString())
		require.NoError(t, err)

		rec, id := resolveRequest(t, loader, "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, id)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	userID := uuid.NewString()
	token, err := GenerateToken(userID)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	SetSecret("secret-one")
	token, err := GenerateToken(uuid.NewString())
	require.NoError(t, err)

	SetSecret("secret-two")
	_, err = ValidateToken(token)
	require.Error(t, err)
}
