package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"tenantcore/internal/apperr"
	"tenantcore/internal/auth"
	"tenantcore/internal/logger"
	"tenantcore/internal/manager"
	"tenantcore/internal/model"
)

type fakeAdmin struct {
	createTenant func(name string, ownerID uuid.UUID) (*model.Tenant, error)
	createUser   func(req manager.CreateUserRequest) (*model.User, error)
	changeRole   func(userID uuid.UUID, newRole model.Role, changedBy *uuid.UUID) (*model.User, error)
}

func (f *fakeAdmin) CreateTenant(_ context.Context, name string, ownerID uuid.UUID) (*model.Tenant, error) {
	return f.createTenant(name, ownerID)
}

func (f *fakeAdmin) CreateUser(_ context.Context, req manager.CreateUserRequest) (*model.User, error) {
	return f.createUser(req)
}

func (f *fakeAdmin) ChangeRole(_ context.Context, userID uuid.UUID, newRole model.Role, changedBy *uuid.UUID) (*model.User, error) {
	return f.changeRole(userID, newRole, changedBy)
}

type fakeResources struct {
	userByName map[string]*model.User
}

func (f *fakeResources) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.userByName[username], nil
}
func (f *fakeResources) CreateProject(context.Context, *model.Project) error { return nil }
func (f *fakeResources) GetProject(context.Context, uuid.UUID) (*model.Project, error) {
	return nil, nil
}
func (f *fakeResources) ListProjects(context.Context) ([]model.Project, error) { return nil, nil }
func (f *fakeResources) CreateTask(context.Context, *model.Task) error         { return nil }
func (f *fakeResources) ListTasks(context.Context) ([]model.Task, error)       { return nil, nil }
func (f *fakeResources) ListAuditEvents(context.Context) ([]model.AuditEvent, error) {
	return nil, nil
}

type fakeIdentities map[uuid.UUID]*model.User

func (f fakeIdentities) LoadIdentity(_ context.Context, id uuid.UUID) (*model.User, *model.Tenant, error) {
	u, ok := f[id]
	if !ok {
		return nil, nil, nil
	}
	if u.TenantID == nil {
		return u, nil, nil
	}
	return u, &model.Tenant{ID: *u.TenantID, Name: "T"}, nil
}

func newTestAPI(admin AdminService, store ResourceStore, ids fakeIdentities) *API {
	return NewAPI(admin, store, ids, nil, logger.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterBootstrap(t *testing.T) {
	auth.SetSecret("test-secret")

	admin := &fakeAdmin{
		createUser: func(req manager.CreateUserRequest) (*model.User, error) {
			require.Nil(t, req.CreatedBy)
			return &model.User{ID: uuid.New(), Username: req.Username, Role: model.RoleUser}, nil
		},
	}
	a := newTestAPI(admin, &fakeResources{}, fakeIdentities{})

	rec := doJSON(t, a.Router(), http.MethodPost, "/register", "", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterAuthenticatedCallerBecomesCreator(t *testing.T) {
	auth.SetSecret("test-secret")

	tenantID := uuid.New()
	owner := &model.User{ID: uuid.New(), Username: "owner", TenantID: &tenantID, Role: model.RoleOwner}
	ids := fakeIdentities{owner.ID: owner}

	admin := &fakeAdmin{
		createUser: func(req manager.CreateUserRequest) (*model.User, error) {
			require.NotNil(t, req.CreatedBy)
			require.Equal(t, owner.ID, *req.CreatedBy)
			return &model.User{ID: uuid.New(), Username: req.Username, Role: req.Role, TenantID: &tenantID}, nil
		},
	}
	a := newTestAPI(admin, &fakeResources{}, ids)

	token, err := auth.GenerateToken(owner.ID.String())
	require.NoError(t, err)

	rec := doJSON(t, a.Router(), http.MethodPost, "/register", token,
		map[string]string{"username": "bob", "role": "admin"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTenantRequiresAuth(t *testing.T) {
	auth.SetSecret("test-secret")
	a := newTestAPI(&fakeAdmin{}, &fakeResources{}, fakeIdentities{})

	rec := doJSON(t, a.Router(), http.MethodPost, "/tenants", "", map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenUnknownUser(t *testing.T) {
	auth.SetSecret("test-secret")
	a := newTestAPI(&fakeAdmin{}, &fakeResources{userByName: map[string]*model.User{}}, fakeIdentities{})

	rec := doJSON(t, a.Router(), http.MethodPost, "/token", "", map[string]string{"username": "ghost"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangeRoleStatusMapping(t *testing.T) {
	auth.SetSecret("test-secret")

	tenantID := uuid.New()
	actor := &model.User{ID: uuid.New(), Username: "actor", TenantID: &tenantID, Role: model.RoleAdmin}
	ids := fakeIdentities{actor.ID: actor}

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"authorization", apperr.Authorizationf("only an owner may change roles"), http.StatusForbidden},
		{"validation", apperr.Validationf("a user cannot change its own role"), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admin := &fakeAdmin{
				changeRole: func(uuid.UUID, model.Role, *uuid.UUID) (*model.User, error) {
					return nil, tc.err
				},
			}
			a := newTestAPI(admin, &fakeResources{}, ids)

			token, err := auth.GenerateToken(actor.ID.String())
			require.NoError(t, err)

			rec := doJSON(t, a.Router(), http.MethodPut, "/users/"+uuid.NewString()+"/role", token,
				map[string]string{"role": "owner"})
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestWriteErrorRLSViolation(t *testing.T) {
	a := newTestAPI(&fakeAdmin{}, &fakeResources{}, fakeIdentities{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", nil)

	a.writeError(rec, req, &pq.Error{Code: "42501", Message: "new row violates row-level security policy"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriteErrorUnknownIsInternal(t *testing.T) {
	a := newTestAPI(&fakeAdmin{}, &fakeResources{}, fakeIdentities{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)

	a.writeError(rec, req, context.DeadlineExceeded)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
