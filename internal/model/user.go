// internal/model/user.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the per-tenant privilege level. Ordered: owner > admin > user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// User may exist without a tenant (freshly registered). Once TenantID is set
// it never changes; storage and the authorization engine both enforce that.
type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Role      Role       `json:"role" db:"role"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// SameTenant reports whether both users belong to the same, non-nil tenant.
func (u *User) SameTenant(other *User) bool {
	if u.TenantID == nil || other.TenantID == nil {
		return false
	}
	return *u.TenantID == *other.TenantID
}
