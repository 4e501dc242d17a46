package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AdminChecker decides whether a user bypasses feature gating
type AdminChecker interface {
	IsSuperAdmin(ctx context.Context, userID string) (bool, error)
}

// PostgresAdminChecker reads the super_admins table
type PostgresAdminChecker struct {
	db *sql.DB
}

// NewPostgresAdminChecker creates a checker over db
func NewPostgresAdminChecker(db *sql.DB) *PostgresAdminChecker {
	return &PostgresAdminChecker{db: db}
}

// IsSuperAdmin implements AdminChecker
func (c *PostgresAdminChecker) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM super_admins WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check super admin: %w", err)
	}
	return true, nil
}

// StaticAdminChecker grants admin to a fixed list of user ids
type StaticAdminChecker struct {
	ids map[string]struct{}
}

// NewStaticAdminChecker creates a checker for ids
func NewStaticAdminChecker(ids ...string) *StaticAdminChecker {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			set[id] = struct{}{}
		}
	}
	return &StaticAdminChecker{ids: set}
}

// IsSuperAdmin implements AdminChecker
func (c *StaticAdminChecker) IsSuperAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := c.ids[strings.ToLower(userID)]
	return ok, nil
}

// AnyAdminChecker grants admin when any checker does. Errors are returned only
// when no checker granted.
type AnyAdminChecker []AdminChecker

// IsSuperAdmin implements AdminChecker
func (a AnyAdminChecker) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	var errs []error
	for _, c := range a {
		ok, err := c.IsSuperAdmin(ctx, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
