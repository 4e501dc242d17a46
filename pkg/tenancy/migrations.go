package tenancy

import "github.com/bizflow/bizgate/pkg/storage/postgres"

// Component is the migration namespace of this package
const Component = "tenancy"

// GetMigrations returns the tenancy schema
func GetMigrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create tenants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenants (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					settings JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create tenant_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenant_members (
					tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					user_id UUID NOT NULL,
					is_owner BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (tenant_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_tenant_members_user_id ON tenant_members(user_id);
			`,
		},
	}
}
