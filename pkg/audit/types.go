package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Subscription lifecycle
	EventTypePlanChanged           EventType = "subscription.plan_changed"
	EventTypeSubscriptionCancelled EventType = "subscription.cancelled"
	EventTypeSubscriptionExpired   EventType = "subscription.expired"

	// Catalog
	EventTypeCatalogSeeded EventType = "catalog.seeded"

	// Credits
	EventTypeCreditDeducted EventType = "credit.deducted"
	EventTypeCreditDeclined EventType = "credit.declined"

	// Gating
	EventTypeAccessDenied EventType = "gate.access_denied"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor. UserID is empty for system jobs.
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Plan      string `json:"plan,omitempty"`
	Message   string `json:"message,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter narrows an audit query. Zero fields match everything.
type SearchFilter struct {
	UserID     string
	TenantID   string
	EventTypes []EventType
	Since      *time.Time

	Limit  int
	Offset int
}

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

func (f SearchFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultSearchLimit
	case f.Limit > maxSearchLimit:
		return maxSearchLimit
	}
	return f.Limit
}
