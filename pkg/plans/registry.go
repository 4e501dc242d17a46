package plans

import (
	"encoding/json"
	"strings"
)

// PlanName identifies a subscription tier. Values come from the database, so a
// PlanName may name a tier this build does not know about.
type PlanName string

const (
	PlanFree       PlanName = "FREE"
	PlanKucuk      PlanName = "KUCUK"
	PlanOrta       PlanName = "ORTA"
	PlanBuyuk      PlanName = "BUYUK"
	PlanEnterprise PlanName = "ENTERPRISE"
)

// tierOrder lists known tiers from cheapest to most expensive.
var tierOrder = []PlanName{PlanFree, PlanKucuk, PlanOrta, PlanBuyuk, PlanEnterprise}

// planFeatures is the authorization table. Every tier is spelled out in full so
// a feature can be withdrawn from one tier without touching the others.
var planFeatures = map[PlanName]FeatureSet{
	PlanFree: NewFeatureSet(
		FeatureCustomers,
		FeatureInvoices,
		FeatureProducts,
	),
	PlanKucuk: NewFeatureSet(
		FeatureCustomers,
		FeatureInvoices,
		FeatureProducts,
		FeatureInventory,
		FeatureProjects,
		FeatureReports,
		FeatureOCR,
		FeatureEFatura,
	),
	PlanOrta: NewFeatureSet(
		FeatureCustomers,
		FeatureInvoices,
		FeatureProducts,
		FeatureInventory,
		FeatureProjects,
		FeatureReports,
		FeatureOCR,
		FeatureEFatura,
		FeatureBranches,
		FeatureMultiCurrency,
		FeatureProduction,
		FeatureAdvancedReports,
		FeatureAIChat,
	),
	PlanBuyuk: NewFeatureSet(
		FeatureCustomers,
		FeatureInvoices,
		FeatureProducts,
		FeatureInventory,
		FeatureProjects,
		FeatureReports,
		FeatureOCR,
		FeatureEFatura,
		FeatureBranches,
		FeatureMultiCurrency,
		FeatureProduction,
		FeatureAdvancedReports,
		FeatureAIChat,
		FeatureMarketplace,
		FeatureCashFlowPrediction,
		FeatureProductionSuggestions,
		FeatureExecutiveAssistant,
		FeatureFinanceRobot,
	),
	PlanEnterprise: NewFeatureSet(
		FeatureCustomers,
		FeatureInvoices,
		FeatureProducts,
		FeatureInventory,
		FeatureProjects,
		FeatureReports,
		FeatureOCR,
		FeatureEFatura,
		FeatureBranches,
		FeatureMultiCurrency,
		FeatureProduction,
		FeatureAdvancedReports,
		FeatureAIChat,
		FeatureMarketplace,
		FeatureCashFlowPrediction,
		FeatureProductionSuggestions,
		FeatureExecutiveAssistant,
		FeatureFinanceRobot,
		FeatureAPIAccess,
		FeatureDedicatedManager,
		FeatureCustomIntegrations,
	),
}

// NormalizePlanName trims and upper-cases a tier name as stored in the database.
func NormalizePlanName(name string) PlanName {
	return PlanName(strings.ToUpper(strings.TrimSpace(name)))
}

// Known reports whether the tier has an entry in the authorization table.
func (p PlanName) Known() bool {
	_, ok := planFeatures[NormalizePlanName(string(p))]
	return ok
}

// Rank returns the tier's position from cheapest (0) upwards, or -1 when unknown.
func (p PlanName) Rank() int {
	n := NormalizePlanName(string(p))
	for i, t := range tierOrder {
		if t == n {
			return i
		}
	}
	return -1
}

// FeaturesForPlan returns the features a tier unlocks. For a tier missing from
// the table it returns AllFeatures and false: an unmapped tier must never lock
// a paying customer out, and the false lets callers report the gap.
func FeaturesForPlan(name PlanName) (FeatureSet, bool) {
	set, ok := planFeatures[NormalizePlanName(string(name))]
	if !ok {
		return AllFeatures(), false
	}
	return set, true
}

// KnownPlans returns the mapped tiers from cheapest to most expensive.
func KnownPlans() []PlanName {
	out := make([]PlanName, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// MinimumPlanFor returns the cheapest tier that grants code.
func MinimumPlanFor(code FeatureCode) (PlanName, bool) {
	for _, tier := range tierOrder {
		if planFeatures[tier].Has(code) {
			return tier, true
		}
	}
	return "", false
}

// MinimumPlanForAny returns the cheapest tier that grants at least one of set.
func MinimumPlanForAny(set FeatureSet) (PlanName, bool) {
	for _, tier := range tierOrder {
		if planFeatures[tier].Intersects(set) {
			return tier, true
		}
	}
	return "", false
}

// MarshalJSON encodes the set as a sorted list of feature names.
func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a list of feature names.
func (s *FeatureSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set FeatureSet
	for _, name := range names {
		code, err := ParseFeatureCode(name)
		if err != nil {
			return err
		}
		set |= NewFeatureSet(code)
	}
	*s = set
	return nil
}
