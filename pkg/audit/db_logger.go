package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bizflow/bizgate/pkg/tenancy"
	"github.com/lib/pq"
)

// DBLogger implements audit logging to PostgreSQL. The audit_logs table is
// created by GetMigrations.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// ErrTenantRequired is returned by Search without a tenant
var ErrTenantRequired = errors.New("audit search requires a tenant")

var searchColumns = []string{
	"id", "timestamp", "event_type", "status", "user_id", "tenant_id",
	"request_id", "plan", "message", "metadata",
}

// Log inserts event and sets its ID. Events carrying a tenant are written
// through that tenant's scope; system events without one are written as is.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	if event.TenantID == "" {
		err := l.db.QueryRowContext(ctx, `
			INSERT INTO audit_logs (
				timestamp, event_type, status, user_id,
				request_id, plan, message, metadata
			) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
			RETURNING id`,
			event.Timestamp, string(event.EventType), string(event.Status), event.UserID,
			event.RequestID, event.Plan, event.Message, metadataJSON,
		).Scan(&event.ID)
		if err != nil {
			return fmt.Errorf("failed to insert audit log: %w", err)
		}
		return nil
	}

	scope, err := tenancy.NewScope(l.db, event.TenantID)
	if err != nil {
		return fmt.Errorf("failed to scope audit log: %w", err)
	}
	row, err := scope.InsertReturning(ctx, "audit_logs", map[string]interface{}{
		"timestamp":  event.Timestamp,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
		"user_id":    nullable(event.UserID),
		"request_id": nullable(event.RequestID),
		"plan":       nullable(event.Plan),
		"message":    event.Message,
		"metadata":   metadataJSON,
	}, "id")
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	if err := row.Scan(&event.ID); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// Search returns the filter tenant's events matching filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	if filter.TenantID == "" {
		return nil, ErrTenantRequired
	}
	scope, err := tenancy.NewScope(l.db, filter.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to scope audit search: %w", err)
	}

	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		add("event_type = ANY($%d)", pq.Array(types))
	}
	if filter.Since != nil {
		add("timestamp >= $%d", *filter.Since)
	}

	rows, err := scope.Select(ctx, tenancy.Query{
		Table:   "audit_logs",
		Columns: searchColumns,
		Where:   strings.Join(conditions, " AND "),
		Args:    args,
		OrderBy: []string{"timestamp DESC", "id DESC"},
		Limit:   filter.limit(),
		Offset:  filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			e                                 Event
			userID, tenantID, requestID, plan sql.NullString
			message                           sql.NullString
			metadata                          []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Status, &userID, &tenantID,
			&requestID, &plan, &message, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		e.UserID, e.TenantID, e.RequestID = userID.String, tenantID.String, requestID.String
		e.Plan, e.Message = plan.String, message.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
