package subscription

import "github.com/bizflow/bizgate/pkg/storage/postgres"

// Component is the migration namespace of this package
const Component = "subscription"

// GetMigrations returns the subscription schema
func GetMigrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create subscription_plans table",
			SQL: `
				CREATE TABLE IF NOT EXISTS subscription_plans (
					name VARCHAR(64) PRIMARY KEY,
					monthly_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
					monthly_price_usd NUMERIC(12, 2) NOT NULL DEFAULT 0,
					description TEXT,
					features TEXT[] NOT NULL DEFAULT '{}',
					sort_order INT NOT NULL DEFAULT 0
				);
			`,
		},
		{
			Version:     2,
			Description: "Create user_subscriptions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_subscriptions (
					user_id UUID PRIMARY KEY,
					plan_name VARCHAR(64) NOT NULL,
					status VARCHAR(16) NOT NULL DEFAULT 'active'
						CHECK (status IN ('active', 'cancelled', 'expired')),
					started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ,
					payment_method VARCHAR(64),
					auto_renew BOOLEAN NOT NULL DEFAULT FALSE
				);

				CREATE INDEX IF NOT EXISTS idx_user_subscriptions_expiry
					ON user_subscriptions(expires_at)
					WHERE status IN ('active', 'cancelled');
			`,
		},
		{
			Version:     3,
			Description: "Create credit_balances table",
			SQL: `
				CREATE TABLE IF NOT EXISTS credit_balances (
					user_id UUID PRIMARY KEY,
					ocr_credits INT NOT NULL DEFAULT 5 CHECK (ocr_credits >= 0),
					e_fatura_credits INT NOT NULL DEFAULT 5 CHECK (e_fatura_credits >= 0),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}
