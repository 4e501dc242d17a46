package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/storage/postgres"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// Store is the read and deduct surface a Manager needs. Missing rows are
// reported as nil with a nil error.
type Store interface {
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	ListPlans(ctx context.Context) ([]plans.Plan, error)
	GetCredits(ctx context.Context, userID string) (*Credits, error)
	// DeductCredit consumes one unit of t. ok is false when the balance was
	// already zero.
	DeductCredit(ctx context.Context, userID string, t CreditType) (remaining int, ok bool, err error)
}

// Writer mutates subscriptions and the plan catalog
type Writer interface {
	ChangePlan(ctx context.Context, userID string, change PlanChange) error
	Cancel(ctx context.Context, userID string) (bool, error)
	ExpireLapsed(ctx context.Context, now time.Time) ([]string, error)
	UpsertPlans(ctx context.Context, planList []plans.Plan) error
}

// PostgresStore implements Store and Writer. Reads use a replica when one is
// configured.
type PostgresStore struct {
	conns *postgres.ConnectionManager
	grant int
}

// NewPostgresStore creates a store. grant is the per-counter balance of a
// lazily created credit row.
func NewPostgresStore(conns *postgres.ConnectionManager, grant int) *PostgresStore {
	if grant < 0 {
		grant = DefaultCreditGrant
	}
	return &PostgresStore{conns: conns, grant: grant}
}

// GetSubscription returns the user's subscription row
func (s *PostgresStore) GetSubscription(ctx context.Context, userID string) (sub *Subscription, err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.GetSubscription", attribute.String("user_id", userID))
	defer func() { observability.EndSpan(span, err) }()

	query := `
		SELECT user_id, plan_name, status, started_at, expires_at, payment_method, auto_renew
		FROM user_subscriptions
		WHERE user_id = $1
	`

	var (
		out           Subscription
		planName      string
		status        string
		expiresAt     sql.NullTime
		paymentMethod sql.NullString
	)
	err = s.conns.Replica().QueryRowContext(ctx, query, userID).Scan(
		&out.UserID,
		&planName,
		&status,
		&out.StartedAt,
		&expiresAt,
		&paymentMethod,
		&out.AutoRenew,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	out.PlanName = plans.PlanName(planName)
	out.Status = Status(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		out.ExpiresAt = &t
	}
	out.PaymentMethod = paymentMethod.String
	return &out, nil
}

// ListPlans returns the stored plan catalog in display order
func (s *PostgresStore) ListPlans(ctx context.Context) (out []plans.Plan, err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.ListPlans")
	defer func() { observability.EndSpan(span, err) }()

	query := `
		SELECT name, monthly_price, monthly_price_usd, description, features, sort_order
		FROM subscription_plans
		ORDER BY sort_order, name
	`
	rows, err := s.conns.Replica().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p           plans.Plan
			name        string
			description sql.NullString
			features    []string
		)
		if err := rows.Scan(&name, &p.Price.TRY, &p.Price.USD, &description, pq.Array(&features), &p.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Name = plans.PlanName(name)
		p.Description = description.String
		p.Features = features
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return out, nil
}

// GetCredits returns the user's credit row
func (s *PostgresStore) GetCredits(ctx context.Context, userID string) (c *Credits, err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.GetCredits", attribute.String("user_id", userID))
	defer func() { observability.EndSpan(span, err) }()

	query := `
		SELECT user_id, ocr_credits, e_fatura_credits, updated_at
		FROM credit_balances
		WHERE user_id = $1
	`
	var out Credits
	err = s.conns.Replica().QueryRowContext(ctx, query, userID).Scan(
		&out.UserID, &out.OCR, &out.EFatura, &out.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}
	return &out, nil
}

// DeductCredit creates the credit row with the default grant if needed, then
// decrements counter t only while it is positive
func (s *PostgresStore) DeductCredit(ctx context.Context, userID string, t CreditType) (remaining int, ok bool, err error) {
	if !t.Valid() {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownCreditType, t)
	}
	ctx, span := observability.StartSpan(ctx, "subscription.DeductCredit",
		attribute.String("user_id", userID),
		attribute.String("credit_type", string(t)),
	)
	defer func() { observability.EndSpan(span, err) }()

	db := s.conns.Primary()

	_, err = db.ExecContext(ctx, `
		INSERT INTO credit_balances (user_id, ocr_credits, e_fatura_credits)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, s.grant)
	if err != nil {
		return 0, false, fmt.Errorf("failed to initialise credits: %w", err)
	}

	col := t.column()
	query := fmt.Sprintf(`
		UPDATE credit_balances
		SET %[1]s = %[1]s - 1, updated_at = NOW()
		WHERE user_id = $1 AND %[1]s > 0
		RETURNING %[1]s
	`, col)

	err = db.QueryRowContext(ctx, query, userID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to deduct %s credit: %w", t, err)
	}
	return remaining, true, nil
}

// ChangePlan makes change the user's active subscription
func (s *PostgresStore) ChangePlan(ctx context.Context, userID string, change PlanChange) (err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.ChangePlan",
		attribute.String("user_id", userID),
		attribute.String("plan", string(change.Plan)),
	)
	defer func() { observability.EndSpan(span, err) }()

	plan := plans.NormalizePlanName(string(change.Plan))
	if !plan.Known() {
		return fmt.Errorf("cannot change to unknown plan %q", change.Plan)
	}

	query := `
		INSERT INTO user_subscriptions (user_id, plan_name, status, started_at, expires_at, payment_method, auto_renew)
		VALUES ($1, $2, 'active', NOW(), $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_name = EXCLUDED.plan_name,
			status = 'active',
			started_at = EXCLUDED.started_at,
			expires_at = EXCLUDED.expires_at,
			payment_method = EXCLUDED.payment_method,
			auto_renew = EXCLUDED.auto_renew
	`
	var paymentMethod sql.NullString
	if change.PaymentMethod != "" {
		paymentMethod = sql.NullString{String: change.PaymentMethod, Valid: true}
	}
	_, err = s.conns.Primary().ExecContext(ctx, query,
		userID, string(plan), change.ExpiresAt, paymentMethod, change.AutoRenew,
	)
	if err != nil {
		return fmt.Errorf("failed to change plan: %w", err)
	}
	return nil
}

// Cancel marks the user's active subscription cancelled and stops renewal.
// It reports false when there was no active subscription.
func (s *PostgresStore) Cancel(ctx context.Context, userID string) (found bool, err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.Cancel", attribute.String("user_id", userID))
	defer func() { observability.EndSpan(span, err) }()

	res, err := s.conns.Primary().ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = 'cancelled', auto_renew = FALSE
		WHERE user_id = $1 AND status = 'active'
	`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return n > 0, nil
}

// ExpireLapsed moves every subscription whose expiry is at or before now to
// expired and returns the affected users
func (s *PostgresStore) ExpireLapsed(ctx context.Context, now time.Time) (users []string, err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.ExpireLapsed")
	defer func() { observability.EndSpan(span, err) }()

	rows, err := s.conns.Primary().QueryContext(ctx, `
		UPDATE user_subscriptions
		SET status = 'expired', auto_renew = FALSE
		WHERE status IN ('active', 'cancelled')
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
		RETURNING user_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired user: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return users, nil
}

// UpsertPlans writes the display catalog in one transaction
func (s *PostgresStore) UpsertPlans(ctx context.Context, planList []plans.Plan) (err error) {
	ctx, span := observability.StartSpan(ctx, "subscription.UpsertPlans", attribute.Int("plans", len(planList)))
	defer func() { observability.EndSpan(span, err) }()

	tx, err := s.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin plan upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO subscription_plans (name, monthly_price, monthly_price_usd, description, features, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			monthly_price = EXCLUDED.monthly_price,
			monthly_price_usd = EXCLUDED.monthly_price_usd,
			description = EXCLUDED.description,
			features = EXCLUDED.features,
			sort_order = EXCLUDED.sort_order
	`
	for _, p := range planList {
		if _, err := tx.ExecContext(ctx, query,
			string(p.Name), p.Price.TRY, p.Price.USD, p.Description, pq.Array(p.Features), p.SortOrder,
		); err != nil {
			return fmt.Errorf("failed to upsert plan %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan upsert: %w", err)
	}
	return nil
}
