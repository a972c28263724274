package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activitymetrics "dealflow/internal/activity/metrics"
	"dealflow/internal/activity/relay"
	activitystore "dealflow/internal/activity/store"
	jwttoken "dealflow/internal/jwt_token"
	planhandler "dealflow/internal/plan/handler"
	planmetrics "dealflow/internal/plan/metrics"
	planmodels "dealflow/internal/plan/models"
	planservice "dealflow/internal/plan/service"
	planstore "dealflow/internal/plan/store"
	"dealflow/internal/platform/config"
	"dealflow/internal/platform/health"
	"dealflow/internal/platform/metrics"
	"dealflow/internal/platform/postgres"
	redisclient "dealflow/internal/platform/redis"
	"dealflow/internal/platform/tracing"
	"dealflow/internal/workflow/catalog"
	workflowhandler "dealflow/internal/workflow/handler"
	workflowmetrics "dealflow/internal/workflow/metrics"
	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	"dealflow/internal/workflow/store"
	"dealflow/pkg/platform/circuit"
)

type workflowStore interface {
	service.Store
	service.DocumentStore
}

type activityLog interface {
	service.ActivityLog
	relay.Outbox
}

// app holds every long-lived dependency shared by the serve and relay commands.
type app struct {
	cfg      config.Server
	logger   *slog.Logger
	registry *prometheus.Registry

	db    *sql.DB
	redis *redisclient.Client

	activity        activityLog
	activityMetrics *activitymetrics.Metrics
	workflow        *service.Service
	plan            *planservice.Service
	jwt             *jwttoken.JWTService

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load workflow catalog: %w", err)
	}

	var (
		workflows workflowStore
		txOpts    []service.Option
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, a.fail(ctx, err)
		}
		a.db = db
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		workflows = store.NewPostgres(db)
		a.activity = activitystore.NewPostgres(db)
		txOpts = append(txOpts, service.WithStoreTx(newWorkflowPostgresTx(db, cfg.Database.TxTimeout, logger)))
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		workflows = store.NewInMemory()
		a.activity = activitystore.NewInMemory()
	}

	if err := a.buildPlan(ctx); err != nil {
		return nil, a.fail(ctx, err)
	}

	allowed, err := models.ParseAllowedTypes(cfg.Document.AllowedTypes)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	a.activityMetrics = activitymetrics.New(a.registry)
	a.workflow = service.New(workflows, workflows, a.activity, cat, append(txOpts,
		service.WithLogger(logger),
		service.WithMetrics(workflowmetrics.New(a.registry)),
		service.WithPlanLimiter(a.plan),
		service.WithDocumentPolicy(models.DocumentPolicy{MaxBytes: cfg.Document.MaxBytes, AllowedTypes: allowed}),
		service.WithRequiredGate(cfg.Workflow.EnforceRequired),
	)...)
	a.jwt = jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	return a, nil
}

// buildPlan counts uploads in Redis when configured. The in-memory counter
// takes over while the Redis breaker is open.
func (a *app) buildPlan(ctx context.Context) error {
	tier, err := planmodels.ParseTier(a.cfg.Plan.DefaultTier)
	if err != nil {
		return err
	}
	opts := []planservice.Option{
		planservice.WithLogger(a.logger),
		planservice.WithMetrics(planmetrics.New(a.registry)),
		planservice.WithTier(tier),
	}

	var primary planservice.Counter = planstore.NewInMemory()
	client, err := redisclient.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		a.redis = client
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		primary = planstore.NewRedis(client.Client)
		opts = append(opts, planservice.WithFallback(planstore.NewInMemory(), circuit.New("plan-redis")))
	}

	a.plan, err = planservice.New(primary, opts...)
	return err
}

// router assembles health, metrics, operator and API routes.
func (a *app) router() http.Handler {
	r := chi.NewRouter()
	httpMetrics := metrics.New(a.registry)

	probes := health.New(a.logger)
	if a.db != nil {
		probes.Add("postgres", a.db.PingContext)
	}
	if a.redis != nil {
		probes.Add("redis", a.redis.Health)
	}
	r.Get("/health", probes.Ready)
	r.Get("/health/live", probes.Live)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	newAdminHandler(a.workflow, a.plan, a.logger, a.cfg.Auth.AdminToken).Register(r)

	validator := jwttoken.NewJWTServiceAdapter(a.jwt)
	planhandler.New(a.plan, a.logger, httpMetrics, validator).Register(r)
	workflowhandler.New(a.workflow, a.logger, httpMetrics, validator).Register(r)
	return r
}

func (a *app) fail(ctx context.Context, err error) error {
	return errors.Join(err, a.close(ctx))
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
