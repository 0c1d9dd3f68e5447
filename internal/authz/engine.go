// internal/authz/engine.go
//
// Role rules for user creation and role changes. Strictly ordered hierarchy:
// owner > admin > user. These functions are pure; the manager loads the
// records and persists the outcome.
package authz

import (
	"github.com/google/uuid"

	"tenantcore/internal/apperr"
	"tenantcore/internal/model"
)

// creatableBy maps a creator role to the roles it may hand out. A plain user
// may not create anyone.
var creatableBy = map[model.Role][]model.Role{
	model.RoleOwner: {model.RoleUser, model.RoleAdmin, model.RoleOwner},
	model.RoleAdmin: {model.RoleUser},
	model.RoleUser:  {},
}

// CanCreate reports whether a creator with the given role may create a user
// with the requested role.
func CanCreate(creator, requested model.Role) bool {
	for _, r := range creatableBy[creator] {
		if r == requested {
			return true
		}
	}
	return false
}

// ValidateCreate checks a user-creation request. With no creator, only a
// bootstrap registration is allowed: default role, no tenant. With a creator,
// the creation matrix applies and the new user inherits the creator's tenant.
func ValidateCreate(creator *model.User, requested model.Role) error {
	if !requested.Valid() {
		return apperr.Validationf("unknown role %q", requested)
	}
	if creator == nil {
		if requested != model.RoleUser {
			return apperr.Authorizationf("role %s requires a creator", requested)
		}
		return nil
	}
	if !CanCreate(creator.Role, requested) {
		return apperr.Authorizationf("role %s may not create users with role %s", creator.Role, requested)
	}
	return nil
}

// ValidateRoleChange checks change_role(target, newRole, changedBy).
// A nil changedBy defaults to the target itself, which is then rejected:
// nobody changes their own role.
func ValidateRoleChange(target, changedBy *model.User, newRole model.Role) error {
	if !newRole.Valid() {
		return apperr.Validationf("unknown role %q", newRole)
	}
	if changedBy == nil {
		changedBy = target
	}
	if changedBy.ID == target.ID {
		return apperr.Validationf("a user cannot change its own role")
	}
	if target.TenantID == nil {
		return apperr.Validationf("user %s does not belong to a tenant", target.ID)
	}
	if !target.SameTenant(changedBy) {
		return apperr.Authorizationf("actor belongs to a different tenant")
	}
	if changedBy.Role != model.RoleOwner {
		return apperr.Authorizationf("only an owner may change roles")
	}
	return nil
}

// ValidateTenantAssignment enforces write-once tenancy: once set, a user's
// tenant may never change to a different one.
func ValidateTenantAssignment(current, next *uuid.UUID) error {
	if current == nil || next == nil {
		return nil
	}
	if *current != *next {
		return apperr.Validationf("user tenant is immutable once assigned")
	}
	return nil
}

// ValidateCreatedBy rejects a user naming itself as its creator.
func ValidateCreatedBy(userID uuid.UUID, createdBy *uuid.UUID) error {
	if createdBy != nil && *createdBy == userID {
		return apperr.Validationf("a user cannot be its own creator")
	}
	return nil
}
