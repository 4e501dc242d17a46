package tenancy

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoTenant is returned when the principal belongs to no tenant
	ErrNoTenant = errors.New("no tenant for principal")
	// ErrEmptyTenant is returned when a scope is requested without a tenant id
	ErrEmptyTenant = errors.New("tenant id is required")
	// ErrTenantMismatch is returned when a write names a different tenant
	ErrTenantMismatch = errors.New("tenant id does not match scope")
	// ErrInvalidID is returned for identifiers that are not UUIDs
	ErrInvalidID = errors.New("invalid identifier")
)

// Tenant is one customer account
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is the tenant's JSONB settings column
type Settings struct {
	Currency    string     `json:"currency,omitempty"`
	Language    string     `json:"language,omitempty"`
	PlanLabel   string     `json:"plan_label,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// Scan implements sql.Scanner
func (s *Settings) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = Settings{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into tenant settings", src)
	}
	if len(data) == 0 {
		*s = Settings{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Value implements driver.Valuer
func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// ValidateID checks that id is a UUID and returns its canonical form
func ValidateID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}
