package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tenantcore/internal/apperr"
	"tenantcore/internal/model"
)

func userIn(tenant *uuid.UUID, role model.Role) *model.User {
	return &model.User{ID: uuid.New(), TenantID: tenant, Role: role}
}

func TestCanCreateMatrix(t *testing.T) {
	cases := []struct {
		creator   model.Role
		requested model.Role
		allowed   bool
	}{
		{model.RoleOwner, model.RoleUser, true},
		{model.RoleOwner, model.RoleAdmin, true},
		{model.RoleOwner, model.RoleOwner, true},
		{model.RoleAdmin, model.RoleUser, true},
		{model.RoleAdmin, model.RoleAdmin, false},
		{model.RoleAdmin, model.RoleOwner, false},
		{model.RoleUser, model.RoleUser, false},
		{model.RoleUser, model.RoleAdmin, false},
		{model.RoleUser, model.RoleOwner, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanCreate(tc.creator, tc.requested),
			"%s creating %s", tc.creator, tc.requested)
	}
}

func TestValidateCreateWithCreator(t *testing.T) {
	tenantID := uuid.New()

	t.Run("owner creates any role", func(t *testing.T) {
		owner := userIn(&tenantID, model.RoleOwner)
		for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleOwner} {
			require.NoError(t, ValidateCreate(owner, role))
		}
	})

	t.Run("admin creates only users", func(t *testing.T) {
		admin := userIn(&tenantID, model.RoleAdmin)
		require.NoError(t, ValidateCreate(admin, model.RoleUser))

		err := ValidateCreate(admin, model.RoleAdmin)
		require.True(t, apperr.IsAuthorization(err))
		err = ValidateCreate(admin, model.RoleOwner)
		require.True(t, apperr.IsAuthorization(err))
	})

	t.Run("plain user creates nobody", func(t *testing.T) {
		plain := userIn(&tenantID, model.RoleUser)
		for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleOwner} {
			err := ValidateCreate(plain, role)
			require.True(t, apperr.IsAuthorization(err), "user creating %s", role)
		}
	})
}

func TestValidateCreateBootstrap(t *testing.T) {
	// No creator: only a default registration is allowed.
	require.NoError(t, ValidateCreate(nil, model.RoleUser))

	err := ValidateCreate(nil, model.RoleAdmin)
	require.True(t, apperr.IsAuthorization(err))
	err = ValidateCreate(nil, model.RoleOwner)
	require.True(t, apperr.IsAuthorization(err))
}

func TestValidateCreateRejectsUnknownRole(t *testing.T) {
	err := ValidateCreate(nil, model.Role("superuser"))
	require.True(t, apperr.IsValidation(err))
}

func TestValidateRoleChange(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	t.Run("owner changes any role in its tenant", func(t *testing.T) {
		owner := userIn(&tenantA, model.RoleOwner)
		target := userIn(&tenantA, model.RoleUser)
		for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleOwner} {
			require.NoError(t, ValidateRoleChange(target, owner, role))
		}
	})

	t.Run("self change always fails", func(t *testing.T) {
		for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleOwner} {
			target := userIn(&tenantA, role)
			err := ValidateRoleChange(target, target, model.RoleAdmin)
			require.True(t, apperr.IsValidation(err))
		}
	})

	t.Run("nil actor defaults to target and fails", func(t *testing.T) {
		target := userIn(&tenantA, model.RoleUser)
		err := ValidateRoleChange(target, nil, model.RoleAdmin)
		require.True(t, apperr.IsValidation(err))
	})

	t.Run("tenantless target fails validation", func(t *testing.T) {
		owner := userIn(&tenantA, model.RoleOwner)
		target := userIn(nil, model.RoleUser)
		err := ValidateRoleChange(target, owner, model.RoleAdmin)
		require.True(t, apperr.IsValidation(err))
	})

	t.Run("cross-tenant actor fails authorization", func(t *testing.T) {
		owner := userIn(&tenantB, model.RoleOwner)
		target := userIn(&tenantA, model.RoleUser)
		err := ValidateRoleChange(target, owner, model.RoleAdmin)
		require.True(t, apperr.IsAuthorization(err))
	})

	t.Run("admin actor fails authorization", func(t *testing.T) {
		admin := userIn(&tenantA, model.RoleAdmin)
		target := userIn(&tenantA, model.RoleUser)
		for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleOwner} {
			err := ValidateRoleChange(target, admin, role)
			require.True(t, apperr.IsAuthorization(err))
		}
	})

	t.Run("plain user actor fails authorization", func(t *testing.T) {
		plain := userIn(&tenantA, model.RoleUser)
		target := userIn(&tenantA, model.RoleAdmin)
		err := ValidateRoleChange(target, plain, model.RoleUser)
		require.True(t, apperr.IsAuthorization(err))
	})
}

func TestValidateTenantAssignment(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	require.NoError(t, ValidateTenantAssignment(nil, &a))
	require.NoError(t, ValidateTenantAssignment(&a, nil))
	require.NoError(t, ValidateTenantAssignment(&a, &a))

	err := ValidateTenantAssignment(&a, &b)
	require.True(t, apperr.IsValidation(err))
}

func TestValidateCreatedBy(t *testing.T) {
	id := uuid.New()
	other := uuid.New()

	require.NoError(t, ValidateCreatedBy(id, nil))
	require.NoError(t, ValidateCreatedBy(id, &other))

	err := ValidateCreatedBy(id, &id)
	require.True(t, apperr.IsValidation(err))
}
