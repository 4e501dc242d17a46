package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
)

// Reconciler moves lapsed subscriptions to expired and tells every instance
// to reload the affected users
type Reconciler struct {
	writer   Writer
	notifier Notifier
	logger   *observability.Logger
	metrics  *observability.Metrics
	audit    audit.Logger
	now      func() time.Time
}

// NewReconciler creates a reconciler. notifier and metrics may be nil.
func NewReconciler(writer Writer, notifier Notifier, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Reconciler{writer: writer, notifier: notifier, logger: logger, metrics: metrics, audit: audit.NopLogger{}, now: time.Now}
}

// WithAudit records one subscription.expired event per expired user
func (r *Reconciler) WithAudit(logger audit.Logger) *Reconciler {
	if logger != nil {
		r.audit = logger
	}
	return r
}

// Run expires every subscription whose expires_at has passed and returns how
// many were expired. Publish failures are logged; the rows stay expired.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	ids, err := r.writer.ExpireLapsed(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	if r.metrics != nil {
		r.metrics.SubscriptionsExpired.Add(float64(len(ids)))
	}

	for _, id := range ids {
		event := audit.NewEvent(ctx, audit.EventTypeSubscriptionExpired, audit.EventStatusSuccess)
		event.UserID = id
		event.Message = "expired by reconciler"
		audit.Record(ctx, r.audit, event)

		if err := r.notifier.Publish(ctx, Change{UserID: id, Kind: ChangeSubscription}); err != nil {
			r.logger.WithError(err).WithField("user_id", id).Warn("failed to announce expiry")
		}
	}

	r.logger.WithField("expired", len(ids)).Info("subscription reconciliation finished")
	return len(ids), nil
}

// SeedCatalog writes catalog to the store and asks every session to reload
func SeedCatalog(ctx context.Context, writer Writer, notifier Notifier, catalog *plans.Catalog) error {
	if catalog == nil || len(catalog.Plans) == 0 {
		return fmt.Errorf("plan catalog is empty")
	}
	if err := writer.UpsertPlans(ctx, catalog.Plans); err != nil {
		return fmt.Errorf("upsert plan catalog: %w", err)
	}
	if notifier == nil {
		return nil
	}
	if err := notifier.Publish(ctx, Change{Kind: ChangePlans}); err != nil {
		return fmt.Errorf("announce plan catalog: %w", err)
	}
	return nil
}
