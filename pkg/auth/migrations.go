package auth

import "github.com/bizflow/bizgate/pkg/storage/postgres"

// Component is the migration namespace of this package
const Component = "auth"

// GetMigrations returns the auth schema
func GetMigrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create super_admins table",
			SQL: `
				CREATE TABLE IF NOT EXISTS super_admins (
					user_id UUID PRIMARY KEY,
					granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					revoked_at TIMESTAMPTZ
				);
			`,
		},
	}
}
