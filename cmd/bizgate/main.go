package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizflow/bizgate/pkg/api"
	"github.com/bizflow/bizgate/pkg/async"
	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/config"
	"github.com/bizflow/bizgate/pkg/middleware"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/storage/postgres"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/bizflow/bizgate/pkg/tenancy"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	logger := cfg.Observability.NewLogger().WithField("service", "bizgate")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("bizgate stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otel, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	conns, err := postgres.NewConnectionManager(cfg.Database.Connection(), logger)
	if err != nil {
		return err
	}
	conns.StartHealthCheckRoutine(ctx, 30*time.Second)

	if err := migrate(ctx, conns, logger); err != nil {
		return err
	}

	store := subscription.NewPostgresStore(conns, cfg.Subscription.CreditGrant)
	sessions := subscription.NewSessions(store, logger, metrics, cfg.Subscription.Sessions(),
		subscription.WithCreditGrant(cfg.Subscription.CreditGrant),
		subscription.WithMetrics(metrics),
	)

	limitCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Subscription.DeductRateLimit,
		WindowDuration:    cfg.Subscription.DeductRateWindow,
	}
	var (
		redisClient *redis.Client
		notifier    subscription.Notifier = subscription.NopNotifier{}
		limiter     middleware.Limiter
	)
	if cfg.Redis.Enabled() {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Redis.Client())
		if err != nil {
			return err
		}
		redisNotifier := subscription.NewRedisNotifier(redisClient, cfg.Subscription.ChangeChannel, logger)
		changes, err := redisNotifier.Subscribe(ctx)
		if err != nil {
			return err
		}
		async.Go(logger, "session change dispatcher", func() { sessions.Run(ctx, changes) })
		notifier = redisNotifier
		limiter = middleware.NewRedisRateLimiter(redisClient, limitCfg, "bizgate:ratelimit:deduct")
	} else {
		logger.Warn("redis not configured: sessions will not see changes made by other instances")
		memLimiter := middleware.NewMemoryRateLimiter(limitCfg)
		memLimiter.StartCleanup(ctx)
		limiter = memLimiter
	}

	admins := auth.AnyAdminChecker{
		auth.NewStaticAdminChecker(cfg.Auth.SuperAdmins...),
		auth.NewPostgresAdminChecker(conns.Replica()),
	}
	resolver := tenancy.NewCachedResolver(
		tenancy.NewPostgresResolver(conns.Replica()),
		cfg.Subscription.TenantCacheSize,
		cfg.Subscription.TenantCacheTTL,
	)

	dbAudit, err := audit.NewDBLogger(conns.Primary())
	if err != nil {
		return err
	}

	server := api.NewServer(api.Dependencies{
		Store:         store,
		Writer:        store,
		Sessions:      sessions,
		Notifier:      notifier,
		Resolver:      resolver,
		Verifier:      auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTLeeway),
		Admins:        admins,
		DeductLimiter: limiter,
		Audit:         audit.NewMultiLogger(dbAudit, audit.NewStreamLogger(logger)),
		AuditLog:      dbAudit,
		Metrics:       metrics,
		Logger:        logger,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(conns.Primary(), redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		sessions.Close()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return conns.Close() })
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return observability.ShutdownOTel(ctx, otel, logger) })

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conns.ReportStats(metrics)
			}
		}
	}()

	serveErr := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, healthServer} {
		srv := srv
		go func() {
			logger.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	select {
	case err := <-serveErr:
		stop()
		_ = shutdown.Shutdown()
		return err
	case <-ctx.Done():
		return shutdown.Shutdown()
	}
}

func migrate(ctx context.Context, conns *postgres.ConnectionManager, logger *observability.Logger) error {
	components := []struct {
		name       string
		migrations []postgres.Migration
	}{
		{tenancy.Component, tenancy.GetMigrations()},
		{subscription.Component, subscription.GetMigrations()},
		{auth.Component, auth.GetMigrations()},
		{audit.Component, audit.GetMigrations()},
	}
	for _, c := range components {
		applied, err := postgres.Migrate(ctx, conns.Primary(), c.name, c.migrations)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{"component": c.name, "applied": applied}).Info("migrations up to date")
	}
	return nil
}
