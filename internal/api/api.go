package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/auth"
	"tenantcore/internal/manager"
	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
	"tenantcore/internal/scope"
)

// AdminService is the sanctioned mutator of tenant/user/role state.
// *manager.Manager satisfies it.
type AdminService interface {
	CreateTenant(ctx context.Context, name string, ownerID uuid.UUID) (*model.Tenant, error)
	CreateUser(ctx context.Context, req manager.CreateUserRequest) (*model.User, error)
	ChangeRole(ctx context.Context, userID uuid.UUID, newRole model.Role, changedBy *uuid.UUID) (*model.User, error)
}

// ResourceStore is the tenant-scoped persistence the handlers read and write.
// *storage.Storage satisfies it.
type ResourceStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateTask(ctx context.Context, t *model.Task) error
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error)
}

type API struct {
	Admin  AdminService
	Store  ResourceStore
	Loader auth.IdentityLoader
	DB     *sql.DB
	Log    *zap.SugaredLogger
}

func NewAPI(admin AdminService, store ResourceStore, loader auth.IdentityLoader, db *sql.DB, log *zap.SugaredLogger) *API {
	return &API{
		Admin:  admin,
		Store:  store,
		Loader: loader,
		DB:     db,
		Log:    log,
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.ResolveContext(a.Loader))

		// Administrative entry points.
		r.Post("/register", a.Register)
		r.Post("/token", a.Token)
		r.Post("/tenants", a.CreateTenant)
		r.Get("/tenants/me", a.MyTenant)
		r.Put("/users/{id}/role", a.ChangeRole)

		// Tenant-scoped resources: every handler below runs inside one
		// transaction with the caller's tenant bound.
		r.Group(func(r chi.Router) {
			r.Use(scope.Middleware(a.DB, a.Log))

			r.Post("/projects", a.CreateProject)
			r.Get("/projects", a.ListProjects)
			r.Get("/projects/{id}", a.GetProject)
			r.Post("/tasks", a.CreateTask)
			r.Get("/tasks", a.ListTasks)
			r.Get("/audit", a.ListAudit)
		})
	})

	return r
}
