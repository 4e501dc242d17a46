package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bizflow/bizgate/pkg/async"
	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/middleware"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/bizflow/bizgate/pkg/tenancy"
	"github.com/bizflow/bizgate/pkg/upsell"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const publishTimeout = 5 * time.Second

// Dependencies are the collaborators of the API server
type Dependencies struct {
	Store    subscription.Store
	Writer   subscription.Writer
	Sessions *subscription.Sessions
	Notifier subscription.Notifier
	Resolver tenancy.Resolver
	Verifier *auth.Verifier
	Admins   auth.AdminChecker

	// Catalog supplies display prices and the fallback plan list. Nil uses
	// the embedded catalog.
	Catalog *plans.Catalog
	// DeductLimiter limits credit deductions per principal. Nil disables it.
	DeductLimiter middleware.Limiter

	// Audit records plan changes, cancellations and deductions. Nil
	// discards them. AuditLog serves /v1/me/audit when set.
	Audit    audit.Logger
	AuditLog audit.Searcher

	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Server represents the API server
type Server struct {
	deps    Dependencies
	catalog *plans.Catalog
	gating  *middleware.Gating
	router  *mux.Router
}

// NewServer creates the server and registers its routes
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = subscription.NopNotifier{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger{}
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = plans.DefaultCatalog()
	}

	s := &Server{
		deps:    deps,
		catalog: catalog,
		gating:  middleware.NewGating(deps.Sessions, upsell.New(catalog), deps.Metrics),
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/plans", s.listPlans).Methods(http.MethodGet)

	me := v1.PathPrefix("/me").Subrouter()
	me.Use(
		middleware.Authenticate(s.deps.Verifier, s.deps.Admins),
		middleware.TenantContext(s.deps.Resolver),
		s.gating.Subscription,
	)

	me.HandleFunc("/tenant", s.getTenant).Methods(http.MethodGet)

	me.HandleFunc("/subscription", s.getSubscription).Methods(http.MethodGet)
	me.HandleFunc("/subscription/refresh", s.refreshSubscription).Methods(http.MethodPost)
	me.HandleFunc("/subscription/plan", s.changePlan).Methods(http.MethodPost)
	me.HandleFunc("/subscription/cancel", s.cancelSubscription).Methods(http.MethodPost)

	me.HandleFunc("/features", s.listFeatures).Methods(http.MethodGet)
	me.HandleFunc("/access", s.checkAccess).Methods(http.MethodGet)

	var deduct http.Handler = http.HandlerFunc(s.deductCredit)
	if s.deps.DeductLimiter != nil {
		deduct = middleware.RateLimit(s.deps.DeductLimiter)(deduct)
	}
	me.Handle("/credits/{type}/deduct", deduct).Methods(http.MethodPost)

	if s.deps.AuditLog != nil {
		activity := s.gating.RequireFeature(plans.FeatureReports)(http.HandlerFunc(s.listAudit))
		me.Handle("/audit", activity).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})
}

// Router returns the bare router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with request ids, logging, panic
// recovery and tracing
func (s *Server) Handler() http.Handler {
	chain := httputil.Chain(
		middleware.RequestID,
		httputil.LoggingMiddleware(s.deps.Logger),
		httputil.RecoveryMiddleware(s.deps.Logger),
	)
	return otelhttp.NewHandler(chain(s.router), "bizgate.api")
}

// record writes an audit event stamped from ctx
func (s *Server) record(ctx context.Context, eventType audit.EventType, status audit.EventStatus, plan plans.PlanName, metadata map[string]interface{}) {
	event := audit.NewEvent(ctx, eventType, status)
	event.Plan = string(plan)
	for k, v := range metadata {
		event.Metadata[k] = v
	}
	audit.Record(ctx, s.deps.Audit, event)
}

// publish announces c to other instances without blocking the response
func (s *Server) publish(ctx context.Context, c subscription.Change) {
	logger := observability.FromContext(ctx)
	async.SafeGo(context.WithoutCancel(ctx), logger, publishTimeout, "publish subscription change", func(ctx context.Context) error {
		return s.deps.Notifier.Publish(ctx, c)
	})
}
