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
	"github.com/bizflow/bizgate/pkg/storage/postgres"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/robfig/cron/v3"
)

var (
	schedule = flag.String("schedule", "*/5 * * * *", "Cron schedule for expiring lapsed subscriptions")
	runOnce  = flag.Bool("run-once", false, "Reconcile once and exit")
	timeout  = flag.Duration("timeout", time.Minute, "Deadline for a single reconciliation")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	logger := cfg.Observability.NewLogger().WithField("service", "bizgate-reconciler")

	conns, err := postgres.NewConnectionManager(cfg.Database.Connection(), logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer conns.Close()

	var notifier subscription.Notifier = subscription.NopNotifier{}
	if cfg.Redis.Enabled() {
		client, err := postgres.NewRedisClient(context.Background(), cfg.Redis.Client())
		if err != nil {
			logger.WithError(err).Error("failed to connect to redis")
			os.Exit(1)
		}
		defer client.Close()
		notifier = subscription.NewRedisNotifier(client, cfg.Subscription.ChangeChannel, logger)
	}

	store := subscription.NewPostgresStore(conns, cfg.Subscription.CreditGrant)
	dbAudit, err := audit.NewDBLogger(conns.Primary())
	if err != nil {
		logger.WithError(err).Error("failed to create audit logger")
		os.Exit(1)
	}
	reconciler := subscription.NewReconciler(store, notifier, logger, nil).
		WithAudit(audit.NewMultiLogger(dbAudit, audit.NewStreamLogger(logger)))

	reconcile := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		_, err := reconciler.Run(ctx)
		return err
	}

	if *runOnce {
		if err := reconcile(); err != nil {
			logger.WithError(err).Error("reconciliation failed")
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(*schedule, func() {
		defer observability.RecoverPanic(logger, "subscription reconciliation")
		if err := reconcile(); err != nil {
			logger.WithError(err).Error("reconciliation failed")
		}
	}); err != nil {
		logger.WithError(err).Error("invalid schedule")
		os.Exit(1)
	}

	c.Start()
	logger.WithField("schedule", *schedule).Info("reconciler started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	<-c.Stop().Done()
}
