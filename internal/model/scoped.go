// internal/model/scoped.go
package model

// Tenant-scoped tables carry a mandatory tenant_id column and get row-level
// security policies installed at setup time. The registry is explicit: a new
// scoped entity registers its table here instead of being discovered by
// reflection.
var tenantScopedTables []string

func registerTenantScoped(table string) {
	tenantScopedTables = append(tenantScopedTables, table)
}

// TenantScopedTables returns the tables that require isolation policies.
func TenantScopedTables() []string {
	out := make([]string, len(tenantScopedTables))
	copy(out, tenantScopedTables)
	return out
}
