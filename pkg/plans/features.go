package plans

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// FeatureCode identifies a gateable capability.
type FeatureCode uint8

const (
	FeatureCustomers FeatureCode = iota
	FeatureInvoices
	FeatureProducts
	FeatureInventory
	FeatureProjects
	FeatureReports
	FeatureOCR
	FeatureEFatura
	FeatureBranches
	FeatureMultiCurrency
	FeatureProduction
	FeatureAdvancedReports
	FeatureAIChat
	FeatureMarketplace
	FeatureCashFlowPrediction
	FeatureProductionSuggestions
	FeatureExecutiveAssistant
	FeatureFinanceRobot
	FeatureAPIAccess
	FeatureDedicatedManager
	FeatureCustomIntegrations

	featureCount
)

var featureNames = [featureCount]string{
	FeatureCustomers:             "customers",
	FeatureInvoices:              "invoices",
	FeatureProducts:              "products",
	FeatureInventory:             "inventory",
	FeatureProjects:              "projects",
	FeatureReports:               "reports",
	FeatureOCR:                   "ocr",
	FeatureEFatura:               "e_fatura",
	FeatureBranches:              "branches",
	FeatureMultiCurrency:         "multi_currency",
	FeatureProduction:            "production",
	FeatureAdvancedReports:       "advanced_reports",
	FeatureAIChat:                "ai_chat",
	FeatureMarketplace:           "marketplace",
	FeatureCashFlowPrediction:    "cash_flow_prediction",
	FeatureProductionSuggestions: "production_suggestions",
	FeatureExecutiveAssistant:    "executive_assistant",
	FeatureFinanceRobot:          "finance_robot",
	FeatureAPIAccess:             "api_access",
	FeatureDedicatedManager:      "dedicated_manager",
	FeatureCustomIntegrations:    "custom_integrations",
}

var featuresByName = func() map[string]FeatureCode {
	m := make(map[string]FeatureCode, featureCount)
	for i, name := range featureNames {
		m[name] = FeatureCode(i)
	}
	return m
}()

// String returns the wire name of the feature.
func (c FeatureCode) String() string {
	if c >= featureCount {
		return fmt.Sprintf("feature(%d)", uint8(c))
	}
	return featureNames[c]
}

// Valid reports whether c is a declared feature code.
func (c FeatureCode) Valid() bool {
	return c < featureCount
}

// MarshalText implements encoding.TextMarshaler
func (c FeatureCode) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid feature code %d", uint8(c))
	}
	return []byte(featureNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *FeatureCode) UnmarshalText(text []byte) error {
	code, err := ParseFeatureCode(string(text))
	if err != nil {
		return err
	}
	*c = code
	return nil
}

// ParseFeatureCode resolves a wire name such as "e_fatura".
func ParseFeatureCode(name string) (FeatureCode, error) {
	code, ok := featuresByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown feature code %q", name)
	}
	return code, nil
}

// AllFeatureCodes returns every declared code in declaration order.
func AllFeatureCodes() []FeatureCode {
	codes := make([]FeatureCode, featureCount)
	for i := range codes {
		codes[i] = FeatureCode(i)
	}
	return codes
}

// FeatureSet is an immutable set of feature codes.
type FeatureSet uint64

// NewFeatureSet builds a set from the given codes. Invalid codes are ignored.
func NewFeatureSet(codes ...FeatureCode) FeatureSet {
	var s FeatureSet
	for _, c := range codes {
		if c.Valid() {
			s |= 1 << c
		}
	}
	return s
}

// AllFeatures returns the set containing every declared feature.
func AllFeatures() FeatureSet {
	return FeatureSet(1<<featureCount - 1)
}

// Has reports whether c is in the set.
func (s FeatureSet) Has(c FeatureCode) bool {
	return c.Valid() && s&(1<<c) != 0
}

// Intersects reports whether s and other share at least one feature.
func (s FeatureSet) Intersects(other FeatureSet) bool {
	return s&other != 0
}

// Len returns the number of features in the set.
func (s FeatureSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Empty reports whether the set has no features.
func (s FeatureSet) Empty() bool {
	return s == 0
}

// Codes returns the members in declaration order.
func (s FeatureSet) Codes() []FeatureCode {
	codes := make([]FeatureCode, 0, s.Len())
	for c := FeatureCode(0); c < featureCount; c++ {
		if s.Has(c) {
			codes = append(codes, c)
		}
	}
	return codes
}

// Strings returns the sorted wire names of the members.
func (s FeatureSet) Strings() []string {
	names := make([]string, 0, s.Len())
	for _, c := range s.Codes() {
		names = append(names, c.String())
	}
	sort.Strings(names)
	return names
}

func (s FeatureSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}
