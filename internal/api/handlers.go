package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tenantcore/internal/apperr"
	"tenantcore/internal/auth"
	"tenantcore/internal/manager"
	"tenantcore/internal/model"
)

type registerRequest struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Register creates a user. Anonymous callers get a bootstrap user (role user,
// no tenant); authenticated callers become the new user's creator, which
// pulls in the role-creation matrix and tenant inheritance.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	req := manager.CreateUserRequest{Username: body.Username, Role: body.Role}
	if id := auth.IdentityFrom(r.Context()); id != nil {
		req.CreatedBy = &id.User.ID
	}

	user, err := a.Admin.CreateUser(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, user)
}

type tokenRequest struct {
	Username string `json:"username"`
}

// Token mints a bearer token for an existing user.
func (a *API) Token(w http.ResponseWriter, r *http.Request) {
	var body tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	user, err := a.Store.GetUserByUsername(r.Context(), body.Username)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if user == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}

	token, err := auth.GenerateToken(user.ID.String())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type createTenantRequest struct {
	Name string `json:"name"`
}

// CreateTenant creates a tenant owned by the authenticated caller.
func (a *API) CreateTenant(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}

	var body createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	tenant, err := a.Admin.CreateTenant(r.Context(), body.Name, id.User.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, tenant)
}

// MyTenant returns the caller's tenant.
func (a *API) MyTenant(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if id.Tenant == nil {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "you are not part of any tenant"})
		return
	}
	a.writeJSON(w, http.StatusOK, id.Tenant)
}

type changeRoleRequest struct {
	Role model.Role `json:"role"`
}

// ChangeRole applies a role change to the target user, acted by the caller.
func (a *API) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var body changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	user, err := a.Admin.ChangeRole(r.Context(), userID, body.Role, &id.User.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, user)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) CreateProject(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if id.Tenant == nil {
		a.writeError(w, r, apperr.Validationf("you are not part of any tenant"))
		return
	}

	var body createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	project := &model.Project{
		ID:          uuid.New(),
		TenantID:    id.Tenant.ID,
		Name:        body.Name,
		Description: body.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.Store.CreateProject(r.Context(), project); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, project)
}

func (a *API) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Store.ListProjects(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	a.writeJSON(w, http.StatusOK, projects)
}

func (a *API) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	project, err := a.Store.GetProject(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if project == nil {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "project not found"})
		return
	}
	a.writeJSON(w, http.StatusOK, project)
}

type createTaskRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
}

func (a *API) CreateTask(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		a.writeError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if id.Tenant == nil {
		a.writeError(w, r, apperr.Validationf("you are not part of any tenant"))
		return
	}

	var body createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	// Row security filters the lookup, so a project from another tenant
	// simply does not exist here.
	project, err := a.Store.GetProject(r.Context(), body.ProjectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if project == nil {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "project not found"})
		return
	}

	task := &model.Task{
		ID:        uuid.New(),
		TenantID:  id.Tenant.ID,
		ProjectID: project.ID,
		Title:     body.Title,
		Status:    model.TaskPending,
		CreatedBy: &id.User.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Store.CreateTask(r.Context(), task); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, task)
}

func (a *API) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.Store.ListTasks(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	a.writeJSON(w, http.StatusOK, tasks)
}

func (a *API) ListAudit(w http.ResponseWriter, r *http.Request) {
	events, err := a.Store.ListAuditEvents(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}
	a.writeJSON(w, http.StatusOK, events)
}
