package api

import (
	"time"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/bizflow/bizgate/pkg/upsell"
)

// PlanView is one catalog entry with the features its tier grants
type PlanView struct {
	plans.Plan
	Grants plans.FeatureSet `json:"grants"`
}

// PlansResponse lists the plan catalog
type PlansResponse struct {
	Plans []PlanView `json:"plans"`
}

// SubscriptionResponse is the principal's snapshot and effective plan
type SubscriptionResponse struct {
	*subscription.Snapshot
	EffectivePlan plans.PlanName `json:"effective_plan"`
}

// ChangePlanRequest is the body of POST /v1/me/subscription/plan
type ChangePlanRequest struct {
	Plan          string     `json:"plan"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	AutoRenew     bool       `json:"auto_renew"`
}

// FeatureView is one feature and whether the principal holds it
type FeatureView struct {
	Code         plans.FeatureCode `json:"code"`
	Granted      bool              `json:"granted"`
	RequiredPlan plans.PlanName    `json:"required_plan,omitempty"`
}

// FeaturesResponse lists every feature for the principal
type FeaturesResponse struct {
	Plan       plans.PlanName `json:"plan,omitempty"`
	Loaded     bool           `json:"loaded"`
	SuperAdmin bool           `json:"super_admin"`
	Features   []FeatureView  `json:"features"`
}

// AccessResponse answers GET /v1/me/access
type AccessResponse struct {
	Route        string           `json:"route"`
	Allowed      bool             `json:"allowed"`
	Guarded      bool             `json:"guarded"`
	Requires     plans.FeatureSet `json:"requires"`
	RequiredPlan plans.PlanName   `json:"required_plan,omitempty"`
	Prompt       *upsell.Prompt   `json:"prompt,omitempty"`
}

// DeductResponse answers a credit deduction that was allowed to run
type DeductResponse struct {
	Type      subscription.CreditType `json:"type"`
	Deducted  bool                    `json:"deducted"`
	Remaining int                     `json:"remaining"`
}

// AuditResponse answers GET /v1/me/audit
type AuditResponse struct {
	Events []*audit.Event `json:"events"`
}
