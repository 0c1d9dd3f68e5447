package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTenantScopedTables(t *testing.T) {
	tables := TenantScopedTables()
	require.ElementsMatch(t, []string{"projects", "tasks", "audit_events"}, tables)

	// Callers must not be able to mutate the registry through the returned
	// slice.
	tables[0] = "mutated"
	require.NotContains(t, TenantScopedTables(), "mutated")
}
