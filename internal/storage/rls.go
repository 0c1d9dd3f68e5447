// internal/storage/rls.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tenantcore/internal/model"
)

// Row-security policies compare each row's tenant_id against the
// transaction-scoped app.current_tenant_id setting. NULLIF makes the compare
// null-safe: with no binding the setting is empty, SELECT matches nothing,
// and reads return zero rows rather than everything.
//
// The INSERT policy additionally allows writes when no setting exists at all.
// That is the bootstrap escape hatch for migration and maintenance paths that
// run before any request context; it is unreachable from a request bound to a
// different tenant.
var policyStatements = []string{
	`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE %s FORCE ROW LEVEL SECURITY`,
	`DROP POLICY IF EXISTS tenant_isolation_select ON %s`,
	`DROP POLICY IF EXISTS tenant_isolation_insert ON %s`,
	`DROP POLICY IF EXISTS tenant_isolation_update ON %s`,
	`DROP POLICY IF EXISTS tenant_isolation_delete ON %s`,
	`CREATE POLICY tenant_isolation_select ON %s
		FOR SELECT
		TO PUBLIC
		USING (tenant_id::text = NULLIF(current_setting('app.current_tenant_id', TRUE), ''))`,
	`CREATE POLICY tenant_isolation_insert ON %s
		FOR INSERT
		TO PUBLIC
		WITH CHECK (
			tenant_id::text = NULLIF(current_setting('app.current_tenant_id', TRUE), '')
			OR current_setting('app.current_tenant_id', TRUE) IS NULL
			OR current_setting('app.current_tenant_id', TRUE) = ''
		)`,
	`CREATE POLICY tenant_isolation_update ON %s
		FOR UPDATE
		TO PUBLIC
		USING (tenant_id::text = NULLIF(current_setting('app.current_tenant_id', TRUE), ''))
		WITH CHECK (tenant_id::text = NULLIF(current_setting('app.current_tenant_id', TRUE), ''))`,
	`CREATE POLICY tenant_isolation_delete ON %s
		FOR DELETE
		TO PUBLIC
		USING (tenant_id::text = NULLIF(current_setting('app.current_tenant_id', TRUE), ''))`,
}

// InstallTenantPolicies installs row isolation on every registered
// tenant-scoped table. Idempotent: existing policies are dropped and
// recreated. A failure on one table is logged and does not stop the others;
// the joined error is returned at the end for the caller to surface.
func (s *Storage) InstallTenantPolicies(ctx context.Context, log *zap.SugaredLogger) error {
	var failed []error
	for _, table := range model.TenantScopedTables() {
		if err := s.installPolicies(ctx, table); err != nil {
			log.Errorw("row security setup failed", "table", table, "error", err)
			failed = append(failed, fmt.Errorf("table %s: %w", table, err))
			continue
		}
		log.Infow("row security installed", "table", table)
	}
	return errors.Join(failed...)
}

func (s *Storage) installPolicies(ctx context.Context, table string) error {
	for _, stmt := range policyStatements {
		if _, err := s.DB.ExecContext(ctx, fmt.Sprintf(stmt, table)); err != nil {
			return err
		}
	}
	return nil
}
