package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/config"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/storage/postgres"
	"github.com/bizflow/bizgate/pkg/subscription"
)

var (
	catalogFile = flag.String("file", "", "YAML plan catalog to seed (default: embedded catalog)")
	watch       = flag.Bool("watch", false, "Reseed whenever the catalog file changes")
	debounce    = flag.Duration("debounce", 500*time.Millisecond, "Quiet period before reseeding after a change")
	migrate     = flag.Bool("migrate", true, "Apply subscription and audit migrations before seeding")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	logger := cfg.Observability.NewLogger().WithField("service", "bizgate-catalog")

	if *watch && *catalogFile == "" {
		logger.Error("--watch requires --file")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("catalog seeding failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	conns, err := postgres.NewConnectionManager(cfg.Database.Connection(), logger)
	if err != nil {
		return err
	}
	defer conns.Close()

	if *migrate {
		if _, err := postgres.Migrate(ctx, conns.Primary(), subscription.Component, subscription.GetMigrations()); err != nil {
			return err
		}
		if _, err := postgres.Migrate(ctx, conns.Primary(), audit.Component, audit.GetMigrations()); err != nil {
			return err
		}
	}

	dbAudit, err := audit.NewDBLogger(conns.Primary())
	if err != nil {
		return err
	}
	trail := audit.NewMultiLogger(dbAudit, audit.NewStreamLogger(logger))

	var notifier subscription.Notifier = subscription.NopNotifier{}
	if cfg.Redis.Enabled() {
		client, err := postgres.NewRedisClient(ctx, cfg.Redis.Client())
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = subscription.NewRedisNotifier(client, cfg.Subscription.ChangeChannel, logger)
	}

	store := subscription.NewPostgresStore(conns, cfg.Subscription.CreditGrant)
	seed := func(c *plans.Catalog) error {
		if err := subscription.SeedCatalog(ctx, store, notifier, c); err != nil {
			return err
		}
		logger.WithField("plans", len(c.Plans)).Info("plan catalog seeded")

		event := audit.NewEvent(ctx, audit.EventTypeCatalogSeeded, audit.EventStatusSuccess)
		event.Metadata["plans"] = len(c.Plans)
		event.Metadata["source"] = catalogSource(*catalogFile)
		audit.Record(ctx, trail, event)
		return nil
	}

	catalog, err := loadCatalog(*catalogFile)
	if err != nil {
		return err
	}
	if err := seed(catalog); err != nil {
		return err
	}

	if !*watch {
		return nil
	}
	return watchCatalog(ctx, *catalogFile, *debounce, logger, seed)
}

func catalogSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func loadCatalog(path string) (*plans.Catalog, error) {
	if path == "" {
		return plans.DefaultCatalog(), nil
	}
	return plans.LoadCatalogFile(path)
}
