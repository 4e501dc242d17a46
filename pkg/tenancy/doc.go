// Package tenancy resolves the active tenant of a principal and scopes every
// data access to it.
//
// # Overview
//
// A tenant is the isolation boundary of one customer account. Every business
// row carries a tenant_id, and a read or write without that filter is a
// security defect, not a performance problem. Scope makes the filter
// impossible to forget: it is bound to one tenant at construction and prepends
// "tenant_id = $1" to every statement it builds.
//
// # Usage Example
//
//	tenant, err := resolver.ResolveTenant(ctx, principal.UserID)
//	if errors.Is(err, tenancy.ErrNoTenant) {
//		// user has not been provisioned yet
//	}
//
//	scope, err := tenancy.NewScope(db, tenant.ID)
//	rows, err := scope.Select(ctx, tenancy.Query{
//		Table:   "invoices",
//		Columns: []string{"id", "total"},
//		Where:   "status = $1",
//		Args:    []any{"open"},
//	})
//
// Placeholders in Where are numbered from $1 as if the tenant filter did not
// exist; Scope renumbers them.
//
// # Related Packages
//
//   - pkg/middleware: TenantContext puts the resolved tenant on the request
package tenancy
