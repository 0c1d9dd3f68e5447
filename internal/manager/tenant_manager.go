// internal/manager/tenant_manager.go
package manager

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenantcore/internal/apperr"
	"tenantcore/internal/authz"
	"tenantcore/internal/model"
)

// Store is the persistence the manager needs. *storage.Storage satisfies it.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) error
	CreateTenantWithOwner(ctx context.Context, t *model.Tenant, ownerID uuid.UUID) error
}

// EventPublisher pushes administrative events to the tenant-events queue.
type EventPublisher interface {
	PublishEvent(e model.Event) error
}

// Manager is the only sanctioned mutator of tenant and role state. Handlers
// call it; nothing else writes users.role or users.tenant_id.
type Manager struct {
	store  Store
	events EventPublisher
	log    *zap.SugaredLogger
}

func NewManager(store Store, events EventPublisher, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, events: events, log: log}
}

// CreateTenant creates a tenant together with its owning user, atomically.
// The owner must exist and must not already belong to a tenant; on success
// the owner's role becomes owner.
func (m *Manager) CreateTenant(ctx context.Context, name string, ownerID uuid.UUID) (*model.Tenant, error) {
	if name == "" {
		return nil, apperr.Validationf("tenant name is required")
	}

	owner, err := m.store.GetUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, apperr.Validationf("owner %s not found", ownerID)
	}

	tenant := &model.Tenant{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := authz.ValidateTenantAssignment(owner.TenantID, &tenant.ID); err != nil {
		return nil, err
	}

	if err := m.store.CreateTenantWithOwner(ctx, tenant, owner.ID); err != nil {
		return nil, err
	}

	m.publish(model.Event{
		Action:   model.ActionTenantCreated,
		TenantID: &tenant.ID,
		ActorID:  &owner.ID,
		Subject:  tenant.ID,
		Detail:   name,
		At:       tenant.CreatedAt,
	})

	m.log.Infow("tenant created", "tenant", tenant.ID, "owner", owner.ID)
	return tenant, nil
}

// CreateUserRequest carries the fields of a user-creation call. CreatedBy is
// nil for bootstrap registration; Role defaults to user when empty.
type CreateUserRequest struct {
	Username  string
	Role      model.Role
	CreatedBy *uuid.UUID
}

// CreateUser validates the creation matrix and persists the new user. With a
// creator, the new user's tenant is inherited from the creator, never chosen
// independently.
func (m *Manager) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if req.Username == "" {
		return nil, apperr.Validationf("username is required")
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	var creator *model.User
	if req.CreatedBy != nil {
		var err error
		creator, err = m.store.GetUser(ctx, *req.CreatedBy)
		if err != nil {
			return nil, err
		}
		if creator == nil {
			// A dangling creator reference is a data-integrity failure,
			// not a permission failure.
			return nil, apperr.Validationf("creator %s not found", *req.CreatedBy)
		}
	}

	if err := authz.ValidateCreate(creator, req.Role); err != nil {
		return nil, err
	}

	if existing, err := m.store.GetUserByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperr.Validationf("username %q is taken", req.Username)
	}

	user := &model.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	if creator != nil {
		user.CreatedBy = &creator.ID
		user.TenantID = creator.TenantID
	}
	if err := authz.ValidateCreatedBy(user.ID, user.CreatedBy); err != nil {
		return nil, err
	}

	if err := m.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if user.TenantID != nil {
		m.publish(model.Event{
			Action:   model.ActionUserCreated,
			TenantID: user.TenantID,
			ActorID:  user.CreatedBy,
			Subject:  user.ID,
			Detail:   string(user.Role),
			At:       user.CreatedAt,
		})
	}

	m.log.Infow("user created", "user", user.ID, "role", user.Role)
	return user, nil
}

// ChangeRole applies change_role(new_role, changed_by) to the target user.
func (m *Manager) ChangeRole(ctx context.Context, userID uuid.UUID, newRole model.Role, changedByID *uuid.UUID) (*model.User, error) {
	target, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.Validationf("user %s not found", userID)
	}

	var changedBy *model.User
	if changedByID != nil {
		changedBy, err = m.store.GetUser(ctx, *changedByID)
		if err != nil {
			return nil, err
		}
		if changedBy == nil {
			return nil, apperr.Validationf("acting user %s not found", *changedByID)
		}
	}

	if err := authz.ValidateRoleChange(target, changedBy, newRole); err != nil {
		return nil, err
	}

	if err := m.store.UpdateUserRole(ctx, target.ID, newRole); err != nil {
		return nil, err
	}
	target.Role = newRole

	m.publish(model.Event{
		Action:   model.ActionRoleChanged,
		TenantID: target.TenantID,
		ActorID:  changedByID,
		Subject:  target.ID,
		Detail:   string(newRole),
		At:       time.Now().UTC(),
	})

	m.log.Infow("role changed", "user", target.ID, "role", newRole)
	return target, nil
}

// publish is best effort: the audit pipeline is asynchronous and a broker
// outage must not fail the administrative write that already committed.
func (m *Manager) publish(e model.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishEvent(e); err != nil {
		m.log.Errorw("event publish failed", "action", e.Action, "error", err)
	}
}
