package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Resolver determines the active tenant of a user
type Resolver interface {
	ResolveTenant(ctx context.Context, userID string) (*Tenant, error)
}

// PostgresResolver reads tenant membership from Postgres
type PostgresResolver struct {
	db *sql.DB
}

// NewPostgresResolver creates a resolver over db
func NewPostgresResolver(db *sql.DB) *PostgresResolver {
	return &PostgresResolver{db: db}
}

// ResolveTenant returns the tenant the user owns, otherwise the one they
// joined first
func (r *PostgresResolver) ResolveTenant(ctx context.Context, userID string) (*Tenant, error) {
	id, err := ValidateID(userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.name, t.settings, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_members m ON m.tenant_id = t.id
		WHERE m.user_id = $1
		ORDER BY m.is_owner DESC, m.created_at ASC
		LIMIT 1
	`
	var t Tenant
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Settings, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoTenant
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}
	return &t, nil
}

// CachedResolver memoises successful resolutions for a bounded time
type CachedResolver struct {
	next  Resolver
	cache *lru.LRU[string, *Tenant]
}

// NewCachedResolver wraps next with an expirable LRU of size entries
func NewCachedResolver(next Resolver, size int, ttl time.Duration) *CachedResolver {
	if size <= 0 {
		size = 1024
	}
	return &CachedResolver{
		next:  next,
		cache: lru.NewLRU[string, *Tenant](size, nil, ttl),
	}
}

// ResolveTenant implements Resolver
func (c *CachedResolver) ResolveTenant(ctx context.Context, userID string) (*Tenant, error) {
	if t, ok := c.cache.Get(userID); ok {
		return t, nil
	}
	t, err := c.next.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(userID, t)
	return t, nil
}

// Invalidate drops the cached tenant of userID
func (c *CachedResolver) Invalidate(userID string) {
	c.cache.Remove(userID)
}
