package plans

import (
	"path"
	"strings"
)

// routeFeatures maps a route prefix to the features that unlock it. A route is
// reachable when the principal holds any one of them.
var routeFeatures = map[string]FeatureSet{
	"/customers":              NewFeatureSet(FeatureCustomers),
	"/invoices":               NewFeatureSet(FeatureInvoices),
	"/products":               NewFeatureSet(FeatureProducts),
	"/inventory":              NewFeatureSet(FeatureInventory),
	"/projects":               NewFeatureSet(FeatureProjects),
	"/reports":                NewFeatureSet(FeatureReports, FeatureAdvancedReports),
	"/ocr":                    NewFeatureSet(FeatureOCR),
	"/e-fatura":               NewFeatureSet(FeatureEFatura),
	"/branches":               NewFeatureSet(FeatureBranches),
	"/production":             NewFeatureSet(FeatureProduction),
	"/production/suggestions": NewFeatureSet(FeatureProductionSuggestions),
	"/marketplace":            NewFeatureSet(FeatureMarketplace),
	"/finance":                NewFeatureSet(FeatureCashFlowPrediction, FeatureFinanceRobot),
	"/assistant":              NewFeatureSet(FeatureExecutiveAssistant, FeatureAIChat),
	"/settings/api":           NewFeatureSet(FeatureAPIAccess),
	"/integrations":           NewFeatureSet(FeatureCustomIntegrations),
}

// RouteRequiresAnyOf returns the features guarding route and true, or false when
// the route is unguarded. The longest matching path-segment prefix wins, so
// "/production/suggestions/3" is guarded by "/production/suggestions" and
// "/projects/42" by "/projects".
func RouteRequiresAnyOf(route string) (FeatureSet, bool) {
	p := normalizeRoute(route)
	for {
		if set, ok := routeFeatures[p]; ok {
			return set, true
		}
		i := strings.LastIndexByte(p, '/')
		if i <= 0 {
			return 0, false
		}
		p = p[:i]
	}
}

// GuardedRoutes returns a copy of the route table.
func GuardedRoutes() map[string]FeatureSet {
	out := make(map[string]FeatureSet, len(routeFeatures))
	for k, v := range routeFeatures {
		out[k] = v
	}
	return out
}

// normalizeRoute strips query and fragment, then resolves empty and dot
// segments so "//marketplace" and "/projects/../marketplace" match the table
// entry they reach.
func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = strings.TrimSpace(route)
	return strings.ToLower(path.Clean("/" + route))
}
