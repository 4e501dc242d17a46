// Package plans defines the subscription tiers and the features each one unlocks.
//
// # Overview
//
// Access control is driven by two static tables compiled into the binary:
//
//   - plan tier -> FeatureSet (every tier listed in full, no inheritance)
//   - route prefix -> set of FeatureCodes, any one of which grants access
//
// Both tables are immutable after package initialisation and never touch the
// network or the database.
//
// # Tiers
//
// FREE:       customers, invoices, products
// KUCUK:      + inventory, projects, reports, ocr, e_fatura
// ORTA:       + branches, multi_currency, production, advanced_reports, ai_chat
// BUYUK:      + marketplace, cash flow prediction, production suggestions,
// executive assistant, finance robot
// ENTERPRISE: every feature, including api_access and dedicated_manager
//
// # Usage Example
//
//	set, known := plans.FeaturesForPlan("ORTA")
//	if !known {
//		// unknown tier: set is AllFeatures()
//	}
//	set.Has(plans.FeatureProjects) // true
//
//	required := plans.RouteRequiresAnyOf("/marketplace/orders")
//	// required.Has(plans.FeatureMarketplace) == true
//
// # Display Catalog
//
// Prices, descriptions and marketing bullets live in catalog.yaml, embedded at
// build time. The catalog is display-only; authorization never reads it.
//
// # Related Packages
//
//   - pkg/gate: Decision functions built on these tables
//   - pkg/subscription: Loads the user's current tier
package plans
