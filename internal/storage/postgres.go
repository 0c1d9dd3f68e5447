// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"tenantcore/internal/apperr"
	"tenantcore/internal/model"
	"tenantcore/internal/scope"
)

type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

// LoadIdentity resolves a token's user id into the user record and, when the
// user belongs to a tenant, the tenant record. A missing user is not an
// error: the caller treats it as anonymous.
func (s *Storage) LoadIdentity(ctx context.Context, userID uuid.UUID) (*model.User, *model.Tenant, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.TenantID == nil {
		return user, nil, nil
	}
	tenant, err := s.GetTenant(ctx, *user.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, username, tenant_id, role, created_by, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.TenantID, &u.Role, &u.CreatedBy, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, username, tenant_id, role, created_by, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.TenantID, &u.Role, &u.CreatedBy, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, tenant_id, role, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.TenantID, u.Role, u.CreatedBy, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Storage) UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Validationf("user %s not found", id)
	}
	return nil
}

func (s *Storage) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM tenants WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// CreateTenantWithOwner persists the tenant and promotes the owner in one
// transaction: either the tenant exists with exactly one owner, or nothing
// happened. The tenant_id IS NULL guard enforces write-once tenancy at the
// database even if the engine's check raced.
func (s *Storage) CreateTenantWithOwner(ctx context.Context, t *model.Tenant, ownerID uuid.UUID) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)
	`, t.ID, t.Name, t.CreatedAt); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE users SET tenant_id = $1, role = $2
		WHERE id = $3 AND tenant_id IS NULL
	`, t.ID, model.RoleOwner, ownerID)
	if err != nil {
		return fmt.Errorf("assign owner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Validationf("owner %s missing or already belongs to a tenant", ownerID)
	}

	return tx.Commit()
}

func (s *Storage) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, created_at FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Tenant-scoped entities below run through the querier bound by the scope
// guard so that row security sees the caller's tenant.

func (s *Storage) CreateProject(ctx context.Context, p *model.Project) error {
	q := scope.QuerierFrom(ctx, s.DB)
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (id, tenant_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.TenantID, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Storage) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	q := scope.QuerierFrom(ctx, s.DB)
	var p model.Project
	err := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, created_at
		FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (s *Storage) ListProjects(ctx context.Context) ([]model.Project, error) {
	q := scope.QuerierFrom(ctx, s.DB)
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, name, description, created_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Storage) CreateTask(ctx context.Context, t *model.Task) error {
	q := scope.QuerierFrom(ctx, s.DB)
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, tenant_id, project_id, title, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.TenantID, t.ProjectID, t.Title, t.Status, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Storage) ListTasks(ctx context.Context) ([]model.Task, error) {
	q := scope.QuerierFrom(ctx, s.DB)
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, project_id, title, status, created_by, created_at
		FROM tasks ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Title, &t.Status, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Storage) InsertAuditEvent(ctx context.Context, e *model.AuditEvent) error {
	q := scope.QuerierFrom(ctx, s.DB)
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_events (id, tenant_id, action, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.TenantID, e.Action, e.ActorID, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Storage) ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error) {
	q := scope.QuerierFrom(ctx, s.DB)
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, action, actor_id, payload, created_at
		FROM audit_events ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.ActorID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
