package upsell

import (
	"fmt"

	"github.com/bizflow/bizgate/pkg/plans"
)

// Decider is the part of a gate the flow consults
type Decider interface {
	HasFeature(code plans.FeatureCode) bool
	CanAccessRoute(route string) bool
	CurrentPlan() (plans.PlanName, bool)
}

// Prompt describes a blocked action and the plan that unlocks it
type Prompt struct {
	Feature      *plans.FeatureCode `json:"feature,omitempty"`
	Route        string             `json:"route,omitempty"`
	Requires     plans.FeatureSet   `json:"requires"`
	CurrentPlan  plans.PlanName     `json:"current_plan,omitempty"`
	RequiredPlan plans.PlanName     `json:"required_plan,omitempty"`
	Price        *plans.Price       `json:"price,omitempty"`
	Message      string             `json:"message"`
}

// Flow builds prompts using a display catalog for prices
type Flow struct {
	catalog *plans.Catalog
}

// New creates a flow. A nil catalog uses the embedded default.
func New(catalog *plans.Catalog) *Flow {
	if catalog == nil {
		catalog = plans.DefaultCatalog()
	}
	return &Flow{catalog: catalog}
}

// Guard runs action only when d grants code. When it does not, action is not
// called and the prompt is returned instead.
func (f *Flow) Guard(d Decider, code plans.FeatureCode, action func() error) (*Prompt, error) {
	if !d.HasFeature(code) {
		p := f.FeaturePrompt(d, code)
		return &p, nil
	}
	return nil, action()
}

// GuardRoute is Guard for a route
func (f *Flow) GuardRoute(d Decider, route string, action func() error) (*Prompt, error) {
	if !d.CanAccessRoute(route) {
		p := f.RoutePrompt(d, route)
		return &p, nil
	}
	return nil, action()
}

// FeaturePrompt builds the prompt shown when code is denied
func (f *Flow) FeaturePrompt(d Decider, code plans.FeatureCode) Prompt {
	current, _ := d.CurrentPlan()
	required, _ := plans.MinimumPlanFor(code)

	c := code
	p := Prompt{
		Feature:      &c,
		Requires:     plans.NewFeatureSet(code),
		CurrentPlan:  current,
		RequiredPlan: required,
	}
	f.fill(&p, code.String())
	return p
}

// RoutePrompt builds the prompt shown when route is denied
func (f *Flow) RoutePrompt(d Decider, route string) Prompt {
	current, _ := d.CurrentPlan()
	requires, _ := plans.RouteRequiresAnyOf(route)
	required, _ := plans.MinimumPlanForAny(requires)

	p := Prompt{
		Route:        route,
		Requires:     requires,
		CurrentPlan:  current,
		RequiredPlan: required,
	}
	f.fill(&p, route)
	return p
}

func (f *Flow) fill(p *Prompt, subject string) {
	if p.RequiredPlan == "" {
		p.Message = fmt.Sprintf("%s is not available on any plan", subject)
		return
	}
	if plan, ok := f.catalog.Find(p.RequiredPlan); ok {
		price := plan.Price
		p.Price = &price
	}
	p.Message = fmt.Sprintf("%s requires the %s plan", subject, p.RequiredPlan)
}
