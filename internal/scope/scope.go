// internal/scope/scope.go
package scope

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type txKey struct{}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Storage code runs against whichever one the current scope provides.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithTenantScope runs fn inside one transaction with the tenant identifier
// bound to the database session for exactly that transaction.
//
// The binding uses set_config(..., true), the parameterizable form of
// SET LOCAL: it is transaction-scoped, so commit and rollback both clear it
// unconditionally. A binding can never outlive its transaction, which keeps
// pooled connections safe to reuse.
//
// With a nil tenant, fn runs directly against the pool with no transaction
// and no binding: row-security then makes tenant-scoped reads return nothing.
func WithTenantScope(ctx context.Context, db *sql.DB, tenantID *uuid.UUID, fn func(ctx context.Context) error) error {
	if tenantID == nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tenant scope: %w", err)
	}
	// Rollback after a successful Commit is a no-op ErrTxDone; the deferred
	// call guarantees the transaction is finished even when fn panics, so a
	// pooled connection is never stranded idle-in-transaction with the
	// binding still set.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config('app.current_tenant_id', $1, true)`,
		tenantID.String(),
	); err != nil {
		// The handler must never run with a partially-set binding.
		return fmt.Errorf("bind tenant %s: %w", tenantID, err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// QuerierFrom returns the transaction bound by WithTenantScope, or db itself
// when the context carries no scope.
func QuerierFrom(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
